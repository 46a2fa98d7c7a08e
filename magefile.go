//go:build mage

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binary     = "lexilive"
	mainPkg    = "./cmd/lexilive"
	versionVar = "codeberg.org/snonux/lexilive/internal.Version"
)

// Default target to run when none is specified
var Default = Build

// ldflags stamps VERSION, when set, into the binary
func ldflags() string {
	if v := os.Getenv("VERSION"); v != "" {
		return fmt.Sprintf("-X %s=%s", versionVar, v)
	}
	return ""
}

// Build compiles the lexilive binary
func Build() error {
	fmt.Println("Building", binary)
	return sh.RunV("go", "build", "-ldflags", ldflags(), "-o", binary, mainPkg)
}

// Install installs lexilive into GOPATH/bin
func Install() error {
	mg.Deps(Test)
	return sh.RunV("go", "install", "-ldflags", ldflags(), mainPkg)
}

// Test runs all tests
func Test() error {
	return sh.RunV("go", "test", "./...")
}

// Race runs the tests with the race detector
func Race() error {
	return sh.RunV("go", "test", "-race", "./internal/live/...", "./internal/server/...", "./internal/gui/...")
}

// Vet runs go vet
func Vet() error {
	return sh.RunV("go", "vet", "./...")
}

// Cover writes coverage.out and prints the per-function summary
func Cover() error {
	if err := sh.RunV("go", "test", "-coverprofile=coverage.out", "./..."); err != nil {
		return err
	}
	return sh.RunV("go", "tool", "cover", "-func=coverage.out")
}

// Clean removes build artifacts
func Clean() error {
	for _, f := range []string{binary, "coverage.out"} {
		if err := sh.Rm(filepath.Clean(f)); err != nil {
			return err
		}
	}
	return nil
}
