package deploy

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/notepress/notepress/internal/config"
	apperrors "github.com/notepress/notepress/internal/errors"
	"github.com/notepress/notepress/internal/observability"
)

// ManualExportProvider copies the build output to a local export directory,
// optionally packed as a .tar.gz archive. Every publish lands in its own
// timestamped destination so repeated exports never overwrite each other.
type ManualExportProvider struct {
	recorder observability.Recorder
	now      func() time.Time
}

func NewManualExportProvider(recorder observability.Recorder) *ManualExportProvider {
	return &ManualExportProvider{recorder: recorder, now: time.Now}
}

func (p *ManualExportProvider) Name() string { return string(config.ProviderManualExport) }

func (p *ManualExportProvider) Publish(ctx context.Context, buildOutputDir string, target config.TargetConfig) (Result, error) {
	start := p.now()
	if target.ExportPath == "" {
		return failure("export path is not configured"), apperrors.New(apperrors.KindConfiguration, "export path is not configured").
			Remedy("set deploy.target.export_path in the configuration file").Build()
	}
	if _, err := os.Stat(buildOutputDir); err != nil {
		return failure("build output directory is missing"), apperrors.Wrap(err, apperrors.KindSystem, "build output directory is missing").Build()
	}
	if err := os.MkdirAll(target.ExportPath, 0o755); err != nil {
		return failure(err.Error()), apperrors.Wrap(err, apperrors.KindResource, "cannot create export directory").AtFile(target.ExportPath).Build()
	}

	stamp := p.now().UTC().Format("20060102-150405.000000000")
	var dest string
	var err error
	if target.ExportArchive {
		dest = filepath.Join(target.ExportPath, "site-"+stamp+".tar.gz")
		err = writeArchive(ctx, buildOutputDir, dest)
	} else {
		dest = filepath.Join(target.ExportPath, "site-"+stamp)
		err = copyTree(ctx, buildOutputDir, dest)
	}
	if err != nil {
		p.recorder.IncDeployOutcome(p.Name(), "error")
		return failure(err.Error()), err
	}

	p.recorder.IncDeployOutcome(p.Name(), "success")
	p.recorder.ObserveDeployDuration(p.Name(), p.now().Sub(start))
	slog.Info("export complete", "destination", dest, "archive", target.ExportArchive)
	return Result{Success: true, URL: dest}, nil
}

func failure(msg string) Result { return Result{Success: false, Error: msg} }

func copyTree(ctx context.Context, src, dest string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		out := filepath.Join(dest, rel)
		if d.IsDir() {
			return os.MkdirAll(out, 0o755)
		}
		return copyFile(path, out)
	})
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func writeArchive(ctx context.Context, src, dest string) error {
	f, err := os.Create(dest)
	if err != nil {
		return apperrors.Wrap(err, apperrors.KindResource, "cannot create export archive").AtFile(dest).Build()
	}
	defer f.Close()

	gz := gzip.NewWriter(f)
	tw := tar.NewWriter(gz)

	err = filepath.WalkDir(src, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		hdr.Name = filepath.ToSlash(rel)
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		in, err := os.Open(path)
		if err != nil {
			return err
		}
		defer in.Close()
		_, err = io.Copy(tw, in)
		return err
	})
	if err != nil {
		tw.Close()
		gz.Close()
		return fmt.Errorf("archiving %s: %w", src, err)
	}
	if err := tw.Close(); err != nil {
		return err
	}
	if err := gz.Close(); err != nil {
		return err
	}
	return f.Sync()
}
