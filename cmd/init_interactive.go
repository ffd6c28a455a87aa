package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/mdvalidate/mdbook-validator/config"
)

// InitAnswers holds the answers collected by the init wizard.
type InitAnswers struct {
	Name   string
	Image  string
	Script string
}

// RunInteractiveInit prompts on stdin for one validator's name, image, and
// script path. Grounded on the teacher's bufio.Scanner question-loop shape.
func RunInteractiveInit() (InitAnswers, error) {
	fmt.Println("mdbook-validator init")
	fmt.Println("Define one validator to get started; re-run init to add more.")
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)

	name, err := ask(scanner, "Validator name (used as `validator=<name>` in chapters)", "")
	if err != nil {
		return InitAnswers{}, err
	}
	if name == "" {
		return InitAnswers{}, fmt.Errorf("validator name cannot be empty")
	}

	imagePrompt := "Docker image"
	if cmd, ok := config.QueryCommandFor(name); ok {
		fmt.Printf("Known validator %q; its built-in default query command is: %s\n", name, cmd)
	}
	image, err := ask(scanner, imagePrompt, "")
	if err != nil {
		return InitAnswers{}, err
	}
	if image == "" {
		return InitAnswers{}, fmt.Errorf("docker image cannot be empty")
	}

	script, err := ask(scanner, "Host validator script path (relative to the book root)",
		"scripts/"+name+"-validate.sh")
	if err != nil {
		return InitAnswers{}, err
	}

	return InitAnswers{Name: name, Image: image, Script: script}, nil
}

func ask(scanner *bufio.Scanner, prompt, defaultValue string) (string, error) {
	if defaultValue != "" {
		fmt.Printf("%s [%s]: ", prompt, defaultValue)
	} else {
		fmt.Printf("%s: ", prompt)
	}
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", err
		}
		return defaultValue, nil
	}
	answer := strings.TrimSpace(scanner.Text())
	if answer == "" {
		return defaultValue, nil
	}
	return answer, nil
}
