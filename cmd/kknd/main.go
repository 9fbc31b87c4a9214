package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/bodgit/kknd"
	"github.com/bodgit/kknd/container"
	"github.com/bodgit/kknd/diag"
	"github.com/bodgit/kknd/names"
	"github.com/golang/glog"
	"github.com/klauspost/compress/zstd"
	"github.com/urfave/cli/v2"
)

const defaultDB = "kknd.db"

func init() {
	cli.VersionFlag = &cli.BoolFlag{
		Name:    "version",
		Aliases: []string{"V"},
		Usage:   "print the version",
	}
}

func newLogger(c *cli.Context) *log.Logger {
	logger := log.New(io.Discard, "", 0)
	if c.Bool("verbose") {
		logger.SetOutput(os.Stderr)
	}
	return logger
}

// newNamer prefers an explicit table of contents over the database, which is
// only used if it already exists.
func newNamer(c *cli.Context) (container.Namer, func(), error) {
	if file := c.String("names"); file != "" {
		t, err := names.LoadTable(file)
		if err != nil {
			return nil, nil, err
		}
		return t, func() {}, nil
	}

	if _, err := os.Stat(c.String("db")); err != nil {
		return nil, func() {}, nil
	}

	db, err := names.NewDB(c.String("db"))
	if err != nil {
		return nil, nil, err
	}
	return db, func() { db.Close() }, nil
}

func newKKND(c *cli.Context) (*kknd.KKND, func(), error) {
	n, closer, err := newNamer(c)
	if err != nil {
		return nil, nil, err
	}
	return kknd.New(n, newLogger(c)), closer, nil
}

func open(c *cli.Context, file string) (*kknd.Asset, error) {
	k, closer, err := newKKND(c)
	if err != nil {
		return nil, err
	}
	defer closer()

	return k.Open(file)
}

func list(c *cli.Context) error {
	if c.NArg() < 1 {
		cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
	}

	a, err := open(c, c.Args().First())
	if err != nil {
		return cli.Exit(err, 1)
	}

	w := c.App.Writer
	fmt.Fprintf(w, "version %d timestamp %d size %d\n", a.Header.Version, a.Header.Timestamp, len(a.Data))
	fmt.Fprintf(w, "directory at %d, raw data ends at %d\n", a.Directory.Offset, a.Directory.FirstFileListOffset())
	for _, g := range a.Directory.Groups {
		fmt.Fprintf(w, "%d %s file list at %d, %d files\n", g.Index, g.Tag, g.FileListOffset, len(g.Files))
		for _, f := range g.Files {
			fmt.Fprintf(w, "\t%d offset %d length %d xxhash %016x %s\n", f.Index, f.Offset, f.Length, kknd.Fingerprint(f), f.Name)
		}
	}
	return nil
}

func extractFile(f *container.File, dir, stem string, compress bool) error {
	name := fmt.Sprintf("%s_%s_%d.%s", stem, f.Tag, f.Index, strings.ToLower(f.Tag))
	if compress {
		name += ".zst"
	}

	out, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return err
	}
	defer out.Close()

	var w io.Writer = out
	var enc *zstd.Encoder
	if compress {
		if enc, err = zstd.NewWriter(out, zstd.WithEncoderLevel(zstd.SpeedDefault)); err != nil {
			return err
		}
		w = enc
	}

	if _, err := w.Write(f.Data); err != nil {
		if enc != nil {
			enc.Close()
		}
		return err
	}
	if enc != nil {
		if err := enc.Close(); err != nil {
			return err
		}
	}
	return out.Close()
}

func extract(c *cli.Context) error {
	if c.NArg() < 1 {
		cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
	}
	file := c.Args().First()

	a, err := open(c, file)
	if err != nil {
		return cli.Exit(err, 1)
	}

	files := a.Directory.Files(c.String("type"))
	if c.IsSet("index") {
		g, ok := a.Directory.Group(c.String("type"))
		if !ok {
			return cli.Exit(fmt.Sprintf("no %s files", c.String("type")), 1)
		}
		f, err := g.File(c.Int("index"))
		if err != nil {
			return cli.Exit(err, 1)
		}
		files = []*container.File{f}
	}

	if err := os.MkdirAll(c.String("out"), 0o755); err != nil {
		return cli.Exit(err, 1)
	}

	stem := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
	for _, f := range files {
		if err := extractFile(f, c.String("out"), stem, c.Bool("zstd")); err != nil {
			return cli.Exit(err, 1)
		}
		glog.V(1).Infof("extracted %s", f)
	}
	return nil
}

func animations(c *cli.Context) error {
	if c.NArg() < 1 {
		cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
	}

	a, err := open(c, c.Args().First())
	if err != nil {
		return cli.Exit(err, 1)
	}

	files := a.Directory.Files(kknd.TagMOBD)
	if c.IsSet("index") {
		g, ok := a.Directory.Group(kknd.TagMOBD)
		if !ok {
			return cli.Exit("no MOBD files", 1)
		}
		f, err := g.File(c.Int("index"))
		if err != nil {
			return cli.Exit(err, 1)
		}
		files = []*container.File{f}
	}

	h := new(diag.Histogram)
	w := c.App.Writer
	for _, f := range files {
		set, err := a.Animations(f, h)
		if err != nil {
			return cli.Exit(err, 1)
		}

		fmt.Fprintf(w, "%s: %d animations, %d frames\n", f, len(set.Animations), set.Frames())
		for _, an := range set.Animations {
			width, height := an.MaxSize()
			fmt.Fprintf(w, "\t%d header %#08x frames %d max %dx%d rotational %t\n", an.Index, an.Header, len(an.Frames), width, height, an.Rotational)
		}
	}

	for _, header := range h.Headers() {
		fmt.Fprintf(w, "header %#08x: %d\n", header, h.HeaderCount(header))
	}
	if n := len(h.Mismatches()); n > 0 {
		fmt.Fprintf(w, "%d animation lists ended on an unexpected value\n", n)
	}
	if n := h.Overflows(); n > 0 {
		fmt.Fprintf(w, "%d image rows re-aligned\n", n)
	}
	return nil
}

func compare(c *cli.Context) error {
	if c.NArg() < 2 {
		cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
	}

	a, err := open(c, c.Args().Get(0))
	if err != nil {
		return cli.Exit(err, 1)
	}
	b, err := open(c, c.Args().Get(1))
	if err != nil {
		return cli.Exit(err, 1)
	}

	cmp := kknd.Compare(a, b)
	w := c.App.Writer
	if cmp.HeaderA != cmp.HeaderB {
		fmt.Fprintf(w, "headers differ: %+v %+v\n", cmp.HeaderA, cmp.HeaderB)
	}
	if cmp.Equal() {
		fmt.Fprintln(w, "identical")
		return nil
	}
	fmt.Fprintf(w, "first difference at %d\n", cmp.FirstDifference)

	for _, d := range cmp.Files {
		switch {
		case d.A == nil:
			fmt.Fprintf(w, "%s/%d: only in second\n", d.Tag, d.Index)
		case d.B == nil:
			fmt.Fprintf(w, "%s/%d: only in first\n", d.Tag, d.Index)
		default:
			fmt.Fprintf(w, "%s/%d: length %d %d xxhash %016x %016x\n", d.Tag, d.Index, d.A.Length, d.B.Length, kknd.Fingerprint(d.A), kknd.Fingerprint(d.B))
		}
	}
	return cli.Exit("", 1)
}

func check(c *cli.Context) error {
	if c.NArg() < 1 {
		cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
	}

	k, closer, err := newKKND(c)
	if err != nil {
		return cli.Exit(err, 1)
	}
	defer closer()

	reports, err := k.Check(context.Background(), c.Args().Slice(), c.Int("workers"))
	if err != nil {
		return cli.Exit(err, 1)
	}

	w := c.App.Writer
	for _, r := range reports {
		fmt.Fprintf(w, "%s: %d groups %d files %d animation sets %d animations %d frames", r.File, r.Groups, r.Files, r.AnimationSets, r.Animations, r.Frames)
		if r.Mismatches > 0 || r.Overflows > 0 {
			fmt.Fprintf(w, " (%d list mismatches, %d row overflows)", r.Mismatches, r.Overflows)
		}
		fmt.Fprintln(w)
	}
	return nil
}

func newIndexFlag() cli.Flag {
	return &cli.IntFlag{
		Name:  "index",
		Usage: "only the file with this file list index",
	}
}

func newApp(cwd string) *cli.App {
	app := cli.NewApp()

	app.Name = "kknd"
	app.Usage = "KKND2 asset container utility"
	app.Version = "1.0.0"

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "db",
			EnvVars: []string{"KKND_DB"},
			Value:   filepath.Join(cwd, defaultDB),
			Usage:   "path to name database",
		},
		&cli.StringFlag{
			Name:  "names",
			Usage: "path to JSON table of contents, used instead of the database",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "increase verbosity",
		},
		&cli.IntFlag{
			Name:    "workers",
			EnvVars: []string{"KKND_WORKERS"},
			Value:   4,
			Usage:   "number of files decoded at once by check",
		},
	}

	app.Before = func(c *cli.Context) error {
		if c.Bool("verbose") {
			flag.Set("v", "1")
		}
		return nil
	}

	app.Commands = []*cli.Command{
		{
			Name:        "import",
			Usage:       "Import a JSON table of contents into the name database",
			Description: "",
			ArgsUsage:   "FILE",
			Action: func(c *cli.Context) error {
				if c.NArg() < 1 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				db, err := names.NewDB(c.String("db"))
				if err != nil {
					return cli.Exit(err, 1)
				}
				defer db.Close()

				if err := db.ImportJSON(c.Args().First()); err != nil {
					return cli.Exit(err, 1)
				}

				return nil
			},
		},
		{
			Name:      "list",
			Usage:     "List the groups and files in an asset file",
			ArgsUsage: "FILE",
			Action:    list,
		},
		{
			Name:      "extract",
			Usage:     "Extract raw files from an asset file",
			ArgsUsage: "FILE",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "type",
					Usage:    "group tag of the files to extract",
					Required: true,
				},
				newIndexFlag(),
				&cli.StringFlag{
					Name:  "out",
					Value: ".",
					Usage: "output directory",
				},
				&cli.BoolFlag{
					Name:  "zstd",
					Usage: "compress extracted files with zstd",
				},
			},
			Action: extract,
		},
		{
			Name:      "animations",
			Usage:     "Decode and summarise the MOBD files in an asset file",
			ArgsUsage: "FILE",
			Flags:     []cli.Flag{newIndexFlag()},
			Action:    animations,
		},
		{
			Name:      "compare",
			Usage:     "Compare two asset files",
			ArgsUsage: "FILE1 FILE2",
			Action:    compare,
		},
		{
			Name:      "check",
			Usage:     "Decode asset files and their MOBD files in parallel",
			ArgsUsage: "FILE...",
			Action:    check,
		},
	}

	return app
}

func main() {
	// glog registers its flags on the standard flag set; route it to
	// stderr rather than log files.
	flag.Set("logtostderr", "true")
	defer glog.Flush()

	cwd, err := os.Getwd()
	if err != nil {
		log.Fatal(err)
	}

	if err := newApp(cwd).Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
