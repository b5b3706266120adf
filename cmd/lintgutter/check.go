package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/matkrin/lintgutter/internal/annotation"
	"github.com/matkrin/lintgutter/internal/coordinator"
	"github.com/matkrin/lintgutter/internal/gutter"
	"github.com/matkrin/lintgutter/internal/language"
	"github.com/matkrin/lintgutter/internal/linter"
	"github.com/matkrin/lintgutter/internal/mainloop"
	"github.com/matkrin/lintgutter/internal/utils"
)

var checkCmd = &cobra.Command{
	Use:   "check [flags] FILE...",
	Short: "Lint files once and print them with their markers",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCheck,
}

func init() {
	checkCmd.Flags().Int("jobs", 0, "max linter processes at once (0=auto)")
	checkCmd.Flags().Bool("tooltips", true, "print each marker's message under its line")
	checkCmd.Flags().Bool("summary-only", false, "print only the per-file summary")
}

type fileDocument struct {
	path     string
	uri      string
	text     string
	encoding string
}

func (d *fileDocument) URI() string      { return d.uri }
func (d *fileDocument) Text() string     { return d.text }
func (d *fileDocument) Encoding() string { return d.encoding }
func (d *fileDocument) Language() string { return language.Detect(d.path, d.text) }

type checkedFile struct {
	doc      *fileDocument
	surface  *annotation.Surface
	margin   *gutter.Margin
	analyzed bool
	err      error
	done     chan struct{}
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, logger, cleanup, err := setup(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	jobs, err := cmd.Flags().GetInt("jobs")
	if err != nil {
		return err
	}
	tooltips, err := cmd.Flags().GetBool("tooltips")
	if err != nil {
		return err
	}
	summaryOnly, err := cmd.Flags().GetBool("summary-only")
	if err != nil {
		return err
	}
	colored, err := useColor(cmd, cmd.OutOrStdout())
	if err != nil {
		return err
	}

	lint, err := linter.New(cfg.LinterOptions(), logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	files, byURI, err := collectFiles(args, cfg.Encoding, cfg.Priority)
	if err != nil {
		return err
	}

	loop := mainloop.New()
	loop.Start()
	coord, err := coordinator.New(coordinator.Options{
		Language:   cfg.Language,
		Runner:     lint,
		Dispatcher: loop,
		Logger:     logger,
		Context:    ctx,
		OnComplete: func(completion coordinator.Completion) {
			file, ok := byURI[completion.URI]
			if !ok {
				return
			}
			file.surface.SetProjection(completion.Generation, completion.Projection)
			file.err = completion.Err
			close(file.done)
		},
	})
	if err != nil {
		loop.Stop()
		return err
	}

	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(files)))

	for _, file := range files {
		g.Go(func() error {
			data, err := os.ReadFile(file.doc.path)
			if err != nil {
				return err
			}
			file.doc.text = string(data)

			file.analyzed = coord.Trigger(file.doc)
			if !file.analyzed {
				logger.Info("Skipping file", "path", file.doc.path, "language", file.doc.Language())
				return nil
			}

			select {
			case <-file.done:
				return nil
			case <-gctx.Done():
				return gctx.Err()
			}
		})
	}

	err = g.Wait()
	coord.Shutdown()
	loop.Stop()
	if err != nil {
		return err
	}

	return report(cmd, files, gutter.Options{Color: colored, Tooltips: tooltips}, summaryOnly)
}

// collectFiles drops repeated paths, a second run for the same document
// would supersede the first.
func collectFiles(paths []string, encoding string, priority int) ([]*checkedFile, map[string]*checkedFile, error) {
	var files []*checkedFile
	byURI := make(map[string]*checkedFile, len(paths))

	for _, path := range paths {
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, nil, err
		}
		uri := utils.PathToURI(abs)
		if _, ok := byURI[uri]; ok {
			continue
		}

		margin := &gutter.Margin{}
		file := &checkedFile{
			doc:     &fileDocument{path: path, uri: uri, encoding: encoding},
			surface: annotation.NewSurface(margin, priority),
			margin:  margin,
			done:    make(chan struct{}),
		}
		files = append(files, file)
		byURI[uri] = file
	}
	return files, byURI, nil
}

func report(cmd *cobra.Command, files []*checkedFile, opts gutter.Options, summaryOnly bool) error {
	out := cmd.OutOrStdout()
	foundErrors := false

	for _, file := range files {
		if !file.analyzed {
			fmt.Fprintf(out, "%s: skipped\n", file.doc.path)
			continue
		}
		if file.err != nil {
			fmt.Fprintf(out, "%s: linter failed: %v\n", file.doc.path, file.err)
			continue
		}

		markers := file.surface.Markers()
		if errs, _, _ := gutter.Count(markers); errs > 0 {
			foundErrors = true
		}
		if !summaryOnly && file.margin.Active {
			if err := gutter.Render(out, file.doc.text, file.surface, opts); err != nil {
				return err
			}
		}
		if err := gutter.Summary(out, file.doc.path, markers, opts); err != nil {
			return err
		}
	}

	if foundErrors {
		return errIssuesFound
	}
	return nil
}
