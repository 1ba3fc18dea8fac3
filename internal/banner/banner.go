// Package banner prints the gateway's startup banner.
package banner

import (
	"fmt"
	"strings"
)

const logo = `
======================================================================
      _                         ____       _
     | | __ _ _ __  _   _ ___  / ___| __ _| |_ ___ _ __ ___ _ __   _   _
  _  | |/ _` + "`" + ` | '_ \| | | / __| | |  _ / _` + "`" + ` | __/ _ \ '_ ` + "`" + ` _ \ '_ \ | | | |
 | |_| | (_| | | | | |_| \__ \ | |_| | (_| | ||  __/ | | | | | |_) || |_| |
  \___/ \__,_|_| |_|\__,_|___/  \____|\__,_|\__\___|_| |_| |_| .__/  \__, |
                                                              |_|     |___/
----------------------------------------------------------------------`

const footer = `======================================================================`

// ConfigLine is a single aligned key/value line printed under the banner.
type ConfigLine struct {
	Label string
	Value string
}

// Print displays the startup banner with the service name and configuration.
func Print(serviceName string, config []ConfigLine) {
	fmt.Println(logo)
	fmt.Printf("%s\n", serviceName)

	maxLen := 0
	for _, c := range config {
		if len(c.Label) > maxLen {
			maxLen = len(c.Label)
		}
	}

	for _, c := range config {
		padding := strings.Repeat(" ", maxLen-len(c.Label))
		fmt.Printf("  %s%s : %s\n", c.Label, padding, c.Value)
	}

	fmt.Println()
	fmt.Println("Ready.")
	fmt.Println(footer)
	fmt.Println()
}
