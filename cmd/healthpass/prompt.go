package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
)

var stdin = bufio.NewReader(os.Stdin)

// promptString keeps asking until a non-empty value is entered.
func promptString(label string) string {
	for {
		fmt.Printf("%s: ", label)
		line, _ := stdin.ReadString('\n')
		if v := strings.TrimSpace(line); v != "" {
			return v
		}
		fmt.Println("Value cannot be empty.")
	}
}

// promptOptional returns an empty string when the operator just hits enter.
func promptOptional(label string) string {
	fmt.Printf("%s (optional): ", label)
	line, _ := stdin.ReadString('\n')
	return strings.TrimSpace(line)
}

func promptDate(label string) time.Time {
	for {
		v := promptString(label + " (YYYY-MM-DD)")
		t, err := time.Parse("2006-01-02", v)
		if err == nil {
			return t
		}
		fmt.Println("Use format YYYY-MM-DD (e.g., 1990-01-31).")
	}
}

func promptUUID(label string) uuid.UUID {
	for {
		v := promptString(label)
		id, err := uuid.Parse(v)
		if err == nil {
			return id
		}
		fmt.Println("Please enter a valid UUID.")
	}
}

// requireString returns the flag value, prompting when it was not supplied.
func requireString(flagVal, label string) string {
	if strings.TrimSpace(flagVal) != "" {
		return strings.TrimSpace(flagVal)
	}
	return promptString(label)
}

func requireUUID(flagVal, label string) (uuid.UUID, error) {
	if strings.TrimSpace(flagVal) == "" {
		return promptUUID(label), nil
	}
	id, err := uuid.Parse(strings.TrimSpace(flagVal))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s: %w", label, err)
	}
	return id, nil
}

func requireDate(flagVal, label string) (time.Time, error) {
	if strings.TrimSpace(flagVal) == "" {
		return promptDate(label), nil
	}
	t, err := time.Parse("2006-01-02", strings.TrimSpace(flagVal))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s, want YYYY-MM-DD: %w", label, err)
	}
	return t, nil
}
