package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/nandgame/hack/assembler/internal"
)

// A simple program accepts an input assembly code file supported by hack assembly language and
// transforms the content to the corresponding hack machine language.

var (
	inputPath  = flag.String("i", "./input.asm", "the input hack assembly code file path")
	outputPath = flag.String("o", "", "the output hack binary code file path, empty means <name>.hack next to the input")
	verbose    = flag.Bool("v", false, "whether print all transformed binary code")
)

func main() {
	flag.Parse()
	log.SetFlags(0)
	log.SetPrefix("assembler: ")
	commands, _, err := internal.Assemble(*inputPath, *outputPath)
	if err != nil {
		log.Fatalf("failed to assemble file: %s, err: %v", *inputPath, err)
	}
	if *verbose {
		for _, command := range commands {
			fmt.Println(command)
		}
	}
}
