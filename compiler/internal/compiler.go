package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"
)

type Options struct {
	// Path is a .jack file or a directory holding .jack files.
	Path string
	// OutDir receives the .vm (and .xml) files. Empty means next to each source file.
	OutDir string
	// XML also writes the parse trace of every class.
	XML bool
	// Strict turns duplicate declarations in one scope into resolution errors.
	Strict bool
	// Parallel is the number of files compiled at the same time, at least 1.
	Parallel int
	// KeepGoing compiles the remaining files after a failure and reports all failures.
	KeepGoing bool
}

// CompileClass compiles the single class read from src and writes its vm code to dst.
// When trace isn't nil the parse trace goes there. It returns the class name as far as it
// was parsed.
func CompileClass(src io.Reader, dst io.Writer, trace io.Writer, strict bool) (string, error) {
	writer := NewVMWriter(dst)
	var tracer *XMLTracer
	if trace != nil {
		tracer = NewXMLTracer(trace)
	}
	parser := NewParser(NewTokenizer(src), writer, tracer, strict)
	if err := parser.ParseClass(); err != nil {
		return parser.ClassName(), err
	}
	if err := writer.Flush(); err != nil {
		return parser.ClassName(), err
	}
	return parser.ClassName(), tracer.Flush()
}

// Compile compiles every source file named by opts.Path. Each file is compiled on its own,
// up to opts.Parallel at once. Without KeepGoing the first failure cancels the files not
// started yet and is returned; with it, all failures are joined in file order.
func Compile(ctx context.Context, opts Options) error {
	files, err := collectJackFiles(opts.Path)
	if err != nil {
		return err
	}
	if opts.OutDir != "" {
		if err = os.MkdirAll(opts.OutDir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	limit := opts.Parallel
	if limit < 1 {
		limit = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	failures := make([]error, len(files))
	for i, file := range files {
		i, file := i, file
		g.Go(func() error {
			err := compileFile(gctx, file, opts)
			if err != nil && opts.KeepGoing && gctx.Err() == nil {
				failures[i] = err
				return nil
			}
			return err
		})
	}
	if err = g.Wait(); err != nil {
		return err
	}
	return errors.Join(failures...)
}

func isJackFile(fileName string) bool {
	return filepath.Ext(fileName) == ".jack"
}

func collectJackFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("compiler: %w", err)
	}
	if !info.IsDir() {
		if !isJackFile(path) {
			return nil, fmt.Errorf("compiler: %s is not a .jack file", path)
		}
		return []string{path}, nil
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("compiler: %w", err)
	}
	var files []string
	for _, entry := range entries {
		// Skip not-jack file.
		if entry.IsDir() || !isJackFile(entry.Name()) {
			continue
		}
		files = append(files, filepath.Join(path, entry.Name()))
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("compiler: no .jack file in %s", path)
	}
	return files, nil
}

// outputPath maps dir/Foo.jack to outDir/Foo<ext>.
func outputPath(srcPath, outDir, ext string) string {
	if outDir == "" {
		outDir = filepath.Dir(srcPath)
	}
	base := filepath.Base(srcPath)
	return filepath.Join(outDir, base[:len(base)-len(filepath.Ext(base))]+ext)
}

// compileFile compiles one source file. On failure its outputs are removed, so a .vm file
// on disk is always complete.
func compileFile(ctx context.Context, srcPath string, opts Options) (err error) {
	if err = ctx.Err(); err != nil {
		return err
	}
	vmPath := outputPath(srcPath, opts.OutDir, ".vm")
	log.Printf("compiling %s -> %s", srcPath, vmPath)
	src, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer src.Close()

	var outputs []*os.File
	defer func() {
		for _, f := range outputs {
			if cerr := f.Close(); cerr != nil && err == nil {
				err = fmt.Errorf("close output: %w", cerr)
			}
		}
		if err != nil {
			for _, f := range outputs {
				os.Remove(f.Name())
			}
		}
	}()
	create := func(path string) (*os.File, error) {
		f, err := os.Create(path)
		if err != nil {
			return nil, fmt.Errorf("create output: %w", err)
		}
		outputs = append(outputs, f)
		return f, nil
	}

	dst, err := create(vmPath)
	if err != nil {
		return err
	}
	var trace io.Writer
	if opts.XML {
		if trace, err = create(outputPath(srcPath, opts.OutDir, ".xml")); err != nil {
			return err
		}
	}
	if _, err = CompileClass(src, dst, trace, opts.Strict); err != nil {
		var compileErr *CompileError
		if errors.As(err, &compileErr) {
			compileErr.File = srcPath
		}
		return err
	}
	return nil
}
