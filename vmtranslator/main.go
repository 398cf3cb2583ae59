package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/nandgame/hack/vmtranslator/internal"
)

// A simple program to translate hack vm codes to hack assembler.

var (
	path    = flag.String("path", ".", "a .vm file or a directory of .vm files")
	output  = flag.String("o", "", "the saved path, empty means <name>.asm next to the input")
	verbose = flag.Bool("v", false, "whether print translate result")
	// Programs made of several classes start at Sys.init.
	writeInitializeCode = flag.Bool("wi", false, "whether write initialize code, on by default when -path is a directory")
)

func main() {
	flag.Parse()
	log.SetFlags(0)
	log.SetPrefix("vmtranslator: ")
	writeInit := internal.IsProgramDir(*path)
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "wi" {
			writeInit = *writeInitializeCode
		}
	})
	saved, err := internal.Translate(internal.Options{
		Path:      *path,
		Output:    *output,
		WriteInit: writeInit,
	})
	if err != nil {
		log.Fatalf("failed to translate program: %s, err: %v", *path, err)
	}
	if *verbose {
		content, err := os.ReadFile(saved)
		if err != nil {
			log.Fatalf("failed to read %s: %v", saved, err)
		}
		fmt.Print(string(content))
	}
}
