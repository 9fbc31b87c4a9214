package kknd

import (
	"context"

	"github.com/bodgit/kknd/compression"
	"github.com/bodgit/kknd/diag"
	"golang.org/x/sync/errgroup"
)

// Report summarises one asset file checked by Check.
type Report struct {
	File   string
	Header compression.Header

	Groups int
	Files  int

	// MOBD totals. Frames shared between animations count once per set.
	AnimationSets int
	Animations    int
	Frames        int

	// Headers lists the distinct animation headers seen, sorted.
	Headers []uint32
	// Mismatches counts animation lists that ended on an unexpected value.
	Mismatches int
	// Overflows counts re-aligned image rows.
	Overflows int
}

type job struct {
	index int
	file  string
}

func generateJobs(ctx context.Context, files []string, out chan<- job) error {
	defer close(out)
	for i, file := range files {
		select {
		case out <- job{i, file}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (k *KKND) check(file string) (Report, error) {
	h := new(diag.Histogram)

	a, err := k.open(file, h)
	if err != nil {
		return Report{}, err
	}

	sets, err := a.AllAnimations(h)
	if err != nil {
		return Report{}, err
	}

	r := Report{
		File:          file,
		Header:        a.Header,
		Groups:        len(a.Directory.Groups),
		Files:         a.Directory.Len(),
		AnimationSets: len(sets),
		Headers:       h.Headers(),
		Mismatches:    len(h.Mismatches()),
		Overflows:     h.Overflows(),
	}
	for _, s := range sets {
		r.Animations += len(s.Set.Animations)
		r.Frames += s.Set.Frames()
	}
	return r, nil
}

func (k *KKND) checkWorker(ctx context.Context, in <-chan job, reports []Report) error {
	for j := range in {
		r, err := k.check(j.file)
		if err != nil {
			return err
		}
		// Each worker only writes the slots of the jobs it receives.
		reports[j.index] = r

		k.logger.Printf("Checked \"%s\": %d animation sets\n", j.file, r.AnimationSets)

		if err := ctx.Err(); err != nil {
			return err
		}
	}
	return nil
}

// Check decodes every asset file in files, including all of their MOBD
// files, using up to workers goroutines. Reports are returned in the same
// order as files. The first failure cancels the remaining work.
func (k *KKND) Check(ctx context.Context, files []string, workers int) ([]Report, error) {
	if workers < 1 {
		workers = 1
	}

	g, ctx := errgroup.WithContext(ctx)

	jobs := make(chan job)
	g.Go(func() error {
		return generateJobs(ctx, files, jobs)
	})

	reports := make([]Report, len(files))
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			return k.checkWorker(ctx, jobs, reports)
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}
