package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"gatekeeper/internal/verification/challenge"
	"gatekeeper/internal/verification/models"
)

func newPreviewCmd() *cobra.Command {
	var (
		outDir string
		count  int
		seed   uint64
	)

	cmd := &cobra.Command{
		Use:   "preview-challenge",
		Short: "render sample challenge images to disk",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if count < 1 {
				return fmt.Errorf("--count must be at least 1")
			}
			var opts []challenge.Option
			if cmd.Flags().Changed("seed") {
				opts = append(opts, challenge.WithSeed(seed, seed))
			}
			gen, err := challenge.New(opts...)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return err
			}

			now := time.Now()
			sample := &models.Member{
				User:     models.User{ID: "preview", CreatedAt: now.AddDate(-3, -2, 0)},
				JoinedAt: now.AddDate(0, -1, 0),
			}
			out := cmd.OutOrStdout()
			for i := 1; i <= count; i++ {
				code := gen.NewCode()
				png, err := gen.RenderCode(code)
				if err != nil {
					return err
				}
				path := filepath.Join(outDir, fmt.Sprintf("code-%02d.png", i))
				if err := os.WriteFile(path, png, 0o644); err != nil {
					return err
				}
				fmt.Fprintf(out, "%s  answer=%s\n", path, code)

				q := gen.NewQuestion(sample, "aBcDeF", now)
				png, err = gen.RenderQuestion(q.Lines)
				if err != nil {
					return err
				}
				path = filepath.Join(outDir, fmt.Sprintf("question-%02d.png", i))
				if err := os.WriteFile(path, png, 0o644); err != nil {
					return err
				}
				fmt.Fprintf(out, "%s  type=%s answer=%s\n", path, q.Type, q.Answer)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&outDir, "out", "preview", "directory to write images into")
	cmd.Flags().IntVar(&count, "count", 3, "number of code and question images")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "fixed seed for reproducible images")
	return cmd
}
