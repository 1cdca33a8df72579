// Package imagedir replays directories of still images as capture streams
// each subdirectory of Root is one source; frames are its PNG/JPEG files in name order
package imagedir

import (
	"context"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"aidetect/internal/core/heuristic"
	"aidetect/internal/platform/config"
	perr "aidetect/internal/platform/errors"
	"aidetect/internal/platform/logger"
	"aidetect/internal/services/stream"

	"github.com/google/uuid"
)

// Options locates the sources and sets the replay rate
type Options struct {
	Root string
	FPS  float64
	Kind stream.Kind
}

// FromConfig reads CORE_CAPTURE_IMAGEDIR_*
func FromConfig(root config.Conf) Options {
	c := root.Prefix("CORE_CAPTURE_IMAGEDIR_")
	return Options{
		Root: c.MayString("ROOT", "frames"),
		FPS:  c.MayFloat64("FPS", 2),
		Kind: stream.Kind(c.MayEnum("KIND", string(stream.KindScreen),
			string(stream.KindScreen), string(stream.KindWindow), string(stream.KindTab))),
	}
}

// Provisioner implements stream.Provisioner over a directory tree
type Provisioner struct {
	opt Options
	log *logger.Logger
}

// New returns a provisioner over opt.Root
func New(opt Options) *Provisioner {
	if opt.FPS <= 0 {
		opt.FPS = 2
	}
	if opt.Kind == "" {
		opt.Kind = stream.KindScreen
	}
	return &Provisioner{opt: opt, log: logger.Named("capture.imagedir")}
}

// Sources lists the replayable directories
func (p *Provisioner) Sources() ([]stream.SourceRef, error) {
	ents, err := os.ReadDir(p.opt.Root)
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeSourceUnavailable, "read capture root %s", p.opt.Root)
	}
	var out []stream.SourceRef
	for _, e := range ents {
		if e.IsDir() {
			out = append(out, stream.SourceRef{ID: e.Name(), Kind: p.opt.Kind, Label: e.Name()})
		}
	}
	return out, nil
}

// ChooseSource picks the first directory when its kind is allowed
func (p *Provisioner) ChooseSource(ctx context.Context, kinds []stream.Kind) (stream.SourceRef, error) {
	if err := ctx.Err(); err != nil {
		return stream.SourceRef{}, perr.Wrap(err, perr.ErrorCodeSourceUnavailable, "source selection cancelled")
	}
	if len(kinds) > 0 && !slices.Contains(kinds, p.opt.Kind) {
		return stream.SourceRef{}, perr.SourceUnavailablef("image directories offer %s only", p.opt.Kind)
	}
	srcs, err := p.Sources()
	if err != nil {
		return stream.SourceRef{}, err
	}
	if len(srcs) == 0 {
		return stream.SourceRef{}, perr.SourceUnavailablef("no source directories under %s", p.opt.Root)
	}
	return srcs[0], nil
}

// OpenStream decodes every frame up front and replays them in a loop
func (p *Provisioner) OpenStream(ctx context.Context, ref stream.SourceRef, c stream.Constraints) ([]stream.Track, error) {
	if strings.Contains(ref.ID, "..") || strings.ContainsRune(ref.ID, filepath.Separator) {
		return nil, perr.SourceUnavailablef("invalid source id %q", ref.ID)
	}
	frames, err := p.load(ctx, filepath.Join(p.opt.Root, ref.ID))
	if err != nil {
		return nil, err
	}
	fps := p.opt.FPS
	if c.FPS > 0 {
		fps = c.FPS
	}
	p.log.Debug().Str("source", ref.ID).Int("frames", len(frames)).Float64("fps", fps).Msg("stream opened")
	return []stream.Track{newReplay(frames, time.Duration(float64(time.Second)/fps))}, nil
}

func (p *Provisioner) load(ctx context.Context, dir string) ([]heuristic.ImageSample, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeSourceUnavailable, "open source %s", dir)
	}
	var out []heuristic.ImageSample
	for _, e := range ents {
		if err := ctx.Err(); err != nil {
			return nil, perr.Wrap(err, perr.ErrorCodeSourceUnavailable, "open cancelled")
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".png", ".jpg", ".jpeg":
		default:
			continue
		}
		img, err := decode(filepath.Join(dir, e.Name()))
		if err != nil {
			p.log.Warn().Err(err).Str("file", e.Name()).Msg("frame skipped")
			continue
		}
		out = append(out, heuristic.FromImage(img))
	}
	if len(out) == 0 {
		return nil, perr.SourceUnavailablef("no decodable frames in %s", dir)
	}
	return out, nil
}

func decode(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := heuristic.Decode(f)
	return img, err
}

// Replay is a looping video track
type Replay struct {
	*stream.BaseTrack
	frames *stream.LatestFrame
}

// Latest implements stream.VideoTrack
func (r *Replay) Latest() (stream.Frame, bool) { return r.frames.Latest() }

func newReplay(src []heuristic.ImageSample, period time.Duration) *Replay {
	quit := make(chan struct{})
	r := &Replay{frames: &stream.LatestFrame{}}
	r.BaseTrack = stream.NewBaseTrack(uuid.NewString(), stream.TrackVideo, func() {
		close(quit)
		r.frames.Close()
	})

	go func() {
		t := time.NewTicker(period)
		defer t.Stop()
		for i := 0; ; i = (i + 1) % len(src) {
			s := src[i]
			r.frames.Set(stream.Frame{Width: s.Width, Height: s.Height, Pix: s.Pix, At: time.Now()})
			select {
			case <-quit:
				return
			case <-t.C:
			}
		}
	}()
	return r
}
