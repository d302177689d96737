// Command comp3c compiles a .lisq source file into a resolved COMP-3
// program image, ready for cmd/comp3vm to run.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/comp3toolchain/comp3/ast"
	"github.com/comp3toolchain/comp3/codegen"
	"github.com/comp3toolchain/comp3/lexer"
	"github.com/comp3toolchain/comp3/loader"
	"github.com/comp3toolchain/comp3/preprocessor"
)

func main() {
	if len(os.Args) != 3 {
		fmt.Fprintln(os.Stderr, "usage: comp3c <input.lisq> <output.json>")
		os.Exit(2)
	}
	inputPath, outputPath := os.Args[1], os.Args[2]

	if err := compile(inputPath, outputPath); err != nil {
		fmt.Fprintf(os.Stderr, "comp3c: %v\n", err)
		os.Exit(1)
	}
}

func compile(inputPath, outputPath string) error {
	src, err := os.ReadFile(inputPath)
	if err != nil {
		return err
	}

	pre := preprocessor.New(filepath.Dir(inputPath))
	processed, err := pre.Process(string(src))
	if err != nil {
		return fmt.Errorf("%s: %w", inputPath, err)
	}

	tokens, err := lexer.New(processed).Lex()
	if err != nil {
		return fmt.Errorf("%s: %w", inputPath, err)
	}

	nodes, err := ast.NewBuilder(tokens).Build()
	if err != nil {
		return fmt.Errorf("%s: %w", inputPath, err)
	}

	program, err := codegen.NewGenerator().Generate(nodes)
	if err != nil {
		return fmt.Errorf("%s: %w", inputPath, err)
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return loader.EncodeProgram(outputPath, program)
}
