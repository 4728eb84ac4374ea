package media

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bwise1/barrier_reports/internal/model"
	"github.com/bwise1/barrier_reports/util"
	"github.com/pkg/errors"
)

const (
	// DefaultQuality is the lossy re-encode quality requested from converters.
	DefaultQuality = 90

	targetContentType = "image/jpeg"
	targetExt         = ".jpg"
)

// Converter re-encodes proprietary photos. It may return several frames, in
// which case only the first is used.
type Converter interface {
	Convert(ctx context.Context, data []byte, targetType string, quality int) ([][]byte, error)
}

type Normalizer struct {
	conv    Converter
	quality int
}

func NewNormalizer(conv Converter) *Normalizer {
	return &Normalizer{conv: conv, quality: DefaultQuality}
}

// NeedsNormalization reports whether a must be converted before display.
func (n *Normalizer) NeedsNormalization(a Asset) bool {
	return !a.Normalized
}

// Normalize returns a renderable copy of a. The returned asset carries no
// handle; callers acquire one for it. Any converter failure is reported as
// ErrNormalization and is not retried.
func (n *Normalizer) Normalize(ctx context.Context, a Asset) (Asset, error) {
	if a.Normalized {
		return a, nil
	}
	if n.conv == nil {
		return Asset{}, fmt.Errorf("%w: no converter configured", ErrNormalization)
	}

	frames, err := n.conv.Convert(ctx, a.Data, targetContentType, n.quality)
	if err != nil {
		return Asset{}, fmt.Errorf("%w: %v", ErrNormalization, err)
	}
	if len(frames) == 0 || len(frames[0]) == 0 {
		return Asset{}, fmt.Errorf("%w: converter returned no output", ErrNormalization)
	}

	out := frames[0]
	return Asset{
		Name:        util.ReplaceExt(a.Name, targetExt),
		ContentType: targetContentType,
		Kind:        model.MediaImage,
		Size:        int64(len(out)),
		Data:        out,
		Normalized:  true,
	}, nil
}

// CommandConverter runs an external codec. Args may reference {in}, {out}
// and {quality}; the command must write its result to {out}.
type CommandConverter struct {
	Path string
	Args []string
}

// ParseCommand splits a converter command line such as
// "heif-convert -q {quality} {in} {out}".
func ParseCommand(line string) (CommandConverter, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return CommandConverter{}, errors.New("empty converter command")
	}
	return CommandConverter{Path: fields[0], Args: fields[1:]}, nil
}

func (c CommandConverter) Convert(ctx context.Context, data []byte, _ string, quality int) ([][]byte, error) {
	dir, err := os.MkdirTemp("", "barrier-convert-*")
	if err != nil {
		return nil, errors.Wrap(err, "create work dir")
	}
	defer os.RemoveAll(dir)

	in := filepath.Join(dir, "in.heic")
	out := filepath.Join(dir, "out"+targetExt)
	if err := os.WriteFile(in, data, 0o600); err != nil {
		return nil, errors.Wrap(err, "write input")
	}

	r := strings.NewReplacer("{in}", in, "{out}", out, "{quality}", strconv.Itoa(quality))
	args := make([]string, len(c.Args))
	for i, a := range c.Args {
		args[i] = r.Replace(a)
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.Path, args...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, errors.Wrapf(err, "%s: %s", c.Path, strings.TrimSpace(stderr.String()))
	}

	result, err := os.ReadFile(out)
	if err != nil {
		return nil, errors.Wrap(err, "read converter output")
	}
	return [][]byte{result}, nil
}
