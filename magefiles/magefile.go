//go:build mage

// Package main contains Mage build targets for catalog-harvester developer tooling.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// projectDirs lists the working directories the harvester expects.
var projectDirs = []string{
	"data",
	"metrics",
	".secrets",
}

// Init creates the project directory structure for local runs.
func Init() error {
	for _, dir := range projectDirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
		fmt.Println("  ", dir)
	}
	fmt.Println("Project directories initialized.")
	return nil
}

const (
	binDir  = "bin"
	binName = "catalog-harvester"
	cmdPkg  = "./cmd/catalog-harvester"
)

// Build compiles the CLI binary into bin/, stamping the version from
// the VERSION environment variable when set.
func Build() error {
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", binDir, err)
	}
	out := filepath.Join(binDir, binName)
	version := os.Getenv("VERSION")
	if version == "" {
		version = "dev"
	}
	ldflags := "-X main.version=" + version
	if err := sh.RunV("go", "build", "-ldflags", ldflags, "-o", out, cmdPkg); err != nil {
		return fmt.Errorf("go build: %w", err)
	}
	fmt.Printf("Built %s\n", out)
	return nil
}

// Test runs the unit tests with the race detector. Postgres store tests
// run too when CATALOG_HARVESTER_TEST_PG_DSN is set.
func Test() error {
	return sh.RunV("go", "test", "-race", "-count=1", "./...")
}

// Lint runs go vet over the module.
func Lint() error {
	return sh.RunV("go", "vet", "./...")
}

// Check runs Lint and Test, then Build.
func Check() error {
	mg.SerialDeps(Lint, Test)
	return Build()
}

// Harvest builds the binary and runs a small resumable harvest against the
// local SQLite store.
func Harvest() error {
	mg.Deps(Init, Build)
	return sh.RunV(filepath.Join(binDir, binName), "harvest", "--total", "100", "--page-size", "50",
		"--metrics-file", filepath.Join("metrics", "harvest.prom"))
}

// Stats prints the stored record counts per platform.
func Stats() error {
	mg.Deps(Build)
	return sh.RunV(filepath.Join(binDir, binName), "stats")
}

// Clean removes build output. The local store in data/ is left alone.
func Clean() error {
	return sh.Rm(binDir)
}
