package soy

import (
	"fmt"
	"os"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ctxtpl/ctxtpl/ast"
	"github.com/ctxtpl/ctxtpl/autoescape"
	"github.com/ctxtpl/ctxtpl/check"
	"github.com/ctxtpl/ctxtpl/data"
	"github.com/ctxtpl/ctxtpl/diag"
	"github.com/ctxtpl/ctxtpl/parse"
	"github.com/ctxtpl/ctxtpl/parsepasses"
	"github.com/ctxtpl/ctxtpl/template"
)

// Logger is used to print compile error messages when using the
// "WatchFiles" feature.
var Logger = newDefaultLogger()

func newDefaultLogger() *zap.SugaredLogger {
	var cfg = zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.TimeKey = ""
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	logger, err := cfg.Build()
	if err != nil {
		// zap's own console encoder construction; only fails on a bad
		// config, which newDefaultLogger's literal above never produces.
		panic(err)
	}
	return logger.Sugar().Named("soy")
}

type soyFile struct{ name, content string }

// Bundle is a collection of template source and globals. It acts as input
// for the compiler pipeline (parse, data-ref check, type check, contextual
// autoescape) that produces a *template.Registry ready for soyhtml.
type Bundle struct {
	files   []soyFile
	globals data.Map
	err     error
	watcher *fsnotify.Watcher
}

func NewBundle() *Bundle {
	return &Bundle{globals: make(data.Map)}
}

// WatchFiles tells the bundle to watch any template files added to it and
// recompile whenever they change. It should be called once, before adding
// any files.
func (b *Bundle) WatchFiles(watch bool) *Bundle {
	if watch && b.err == nil && b.watcher == nil {
		b.watcher, b.err = fsnotify.NewWatcher()
	}
	return b
}

// AddTemplateDir adds all *.soy files found within the given directory
// (including sub-directories) to the bundle.
func (b *Bundle) AddTemplateDir(root string) *Bundle {
	matches, err := doublestar.Glob(os.DirFS(root), "**/*.soy")
	if err != nil {
		b.err = err
		return b
	}
	for _, m := range matches {
		b.AddTemplateFile(root + string(os.PathSeparator) + m)
	}
	return b
}

// AddTemplateFile adds the given template file's contents to the bundle.
func (b *Bundle) AddTemplateFile(filename string) *Bundle {
	content, err := os.ReadFile(filename)
	if err != nil {
		b.err = err
	}
	if b.err == nil && b.watcher != nil {
		b.err = b.watcher.Add(filename)
	}
	return b.AddTemplateString(filename, string(content))
}

func (b *Bundle) AddTemplateString(filename, soyfile string) *Bundle {
	b.files = append(b.files, soyFile{filename, soyfile})
	return b
}

func (b *Bundle) AddGlobalsFile(filename string) *Bundle {
	f, err := os.Open(filename)
	if err != nil {
		b.err = err
		return b
	}
	defer f.Close()
	globals, err := ParseGlobals(f)
	if err != nil {
		b.err = err
		return b
	}
	return b.AddGlobalsMap(globals)
}

func (b *Bundle) AddGlobalsMap(globals data.Map) *Bundle {
	for k, v := range globals {
		if existing, ok := b.globals[k]; ok {
			b.err = fmt.Errorf("global %q already defined as %q", k, existing)
			return b
		}
		b.globals[k] = v
	}
	return b
}

// Compile parses every file added to the bundle, then runs the full pass
// pipeline: data-reference validation, static type checking, and
// contextual autoescaping. Parsing runs one goroutine per file, bounded by
// errgroup, since each file is independent until registry assembly.
func (b *Bundle) Compile() (*template.Registry, error) {
	if b.err != nil {
		return nil, b.err
	}

	var trees = make([]*ast.SoyFileNode, len(b.files))
	var g errgroup.Group
	for i, soyfile := range b.files {
		i, soyfile := i, soyfile
		g.Go(func() error {
			tree, err := parse.SoyFile(soyfile.name, soyfile.content, b.globals)
			if err != nil {
				return fmt.Errorf("%s: %v", soyfile.name, err)
			}
			trees[i] = tree
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var registry = &template.Registry{}
	for _, tree := range trees {
		if err := registry.Add(tree); err != nil {
			return nil, err
		}
	}

	parsepasses.ProcessMessages(*registry)

	if err := parsepasses.CheckDataRefs(*registry); err != nil {
		return nil, err
	}

	var ann = ast.NewAnnotations()
	var reporter = diag.NewReporter()
	if err := check.New(registry, ann, reporter, nil).Check(); err != nil {
		return nil, err
	}

	if err := autoescape.Strict(registry, ann); err != nil {
		return nil, err
	}
	autoescape.Prune(registry, ann)

	if b.watcher != nil {
		go b.recompiler(registry)
	}
	return registry, nil
}

func (b *Bundle) recompiler(reg *template.Registry) {
	for {
		select {
		case event, ok := <-b.watcher.Events:
			if !ok {
				return
			}
			// If it's a rename or remove, fsnotify has dropped the watch;
			// add it back after the editor finishes replacing the file.
			if event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove) {
				time.Sleep(10 * time.Millisecond)
				if err := b.watcher.Add(event.Name); err != nil {
					Logger.Error(err)
				}
			}

			var bundle = NewBundle().AddGlobalsMap(b.globals)
			for _, soyfile := range b.files {
				bundle.AddTemplateFile(soyfile.name)
			}
			registry, err := bundle.Compile()
			if err != nil {
				Logger.Error(err)
				continue
			}

			// Update the existing registry in place.
			// (this is not goroutine-safe, but that seems ok for a
			// development aid, as long as it works in practice)
			*reg = *registry
			Logger.Infof("update successful (%v)", event)

		case err, ok := <-b.watcher.Errors:
			if !ok {
				return
			}
			Logger.Error(err)
		}
	}
}
