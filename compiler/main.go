package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"

	"github.com/nandgame/hack/compiler/internal"
)

// Compiles jack classes to hack vm code, one .vm file per .jack file.

var (
	path      = flag.String("path", ".", "a .jack file or a directory of jack files to compile")
	outDir    = flag.String("out", "", "output directory, empty means next to each source file")
	writeXML  = flag.Bool("xml", false, "whether also write the parse trace of each class as .xml")
	strict    = flag.Bool("strict", false, "whether a name declared twice in one scope is an error")
	parallel  = flag.Int("j", 1, "number of files compiled concurrently")
	keepGoing = flag.Bool("keep_going", false, "whether continue with remaining files after a failure")
)

func main() {
	flag.Parse()
	log.SetFlags(0)
	log.SetPrefix("compiler: ")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	err := internal.Compile(ctx, internal.Options{
		Path:      *path,
		OutDir:    *outDir,
		XML:       *writeXML,
		Strict:    *strict,
		Parallel:  *parallel,
		KeepGoing: *keepGoing,
	})
	if err != nil {
		stop()
		log.Fatalf("failed to compile %s:\n%v", *path, err)
	}
}
