package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// confirm 在未传 --yes 时从 in 读取 y/yes。
func (c *cli) confirm(in io.Reader, out io.Writer, prompt string) bool {
	if c.yes {
		return true
	}
	fmt.Fprintf(out, "%s [y/N]: ", prompt)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}
