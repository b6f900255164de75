// genhash prints the bcrypt hash stored in usuarios.password_hash, for
// loading users straight into the database.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

func main() {
	cost := flag.Int("cost", 12, "bcrypt cost")
	flag.Parse()

	password := flag.Arg(0)
	if password == "" {
		// Read from stdin so the password stays out of shell history.
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			fmt.Fprintln(os.Stderr, "uso: genhash [-cost N] <password>  (o por stdin)")
			os.Exit(2)
		}
		password = strings.TrimRight(line, "\r\n")
	}

	h, err := bcrypt.GenerateFromPassword([]byte(password), *cost)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println(string(h))
}
