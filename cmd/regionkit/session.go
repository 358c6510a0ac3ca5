package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/example/regionkit/internal/clipboard"
	"github.com/example/regionkit/internal/draft"
	"github.com/example/regionkit/internal/geometry"
	"github.com/example/regionkit/internal/labels"
	"github.com/example/regionkit/internal/mask"
	"github.com/example/regionkit/internal/media"
	"github.com/example/regionkit/internal/notify"
	"github.com/example/regionkit/internal/render"
	"github.com/example/regionkit/internal/store"
)

var (
	loadFrame           = media.Load
	writeClipboardImage = clipboard.WriteImage
)

// sessionCmd runs a line oriented draft editing session over one frame.
type sessionCmd struct {
	image         string
	video         string
	at            float64
	fromClipboard bool
	target        string
	labelsFile    string
	labelConfig   string
	execs         commandList
	*root
	fs *flag.FlagSet
}

func (s *sessionCmd) FlagSet() *flag.FlagSet {
	return s.fs
}

func parseSessionCmd(args []string, r *root) (*sessionCmd, error) {
	fs := flag.NewFlagSet("session", flag.ExitOnError)
	s := &sessionCmd{root: r, fs: fs}
	fs.Usage = usageFunc(s)
	fs.StringVar(&s.image, "image", "", "image file to label")
	fs.StringVar(&s.video, "video", "", "video file to label")
	fs.Float64Var(&s.at, "at", 0, "video timestamp in seconds")
	fs.BoolVar(&s.fromClipboard, "from-clipboard", false, "label the image on the clipboard")
	fs.StringVar(&s.target, "target", "", "name labels are saved under (defaults to the input path)")
	fs.StringVar(&s.labelsFile, "labels", "", "start from labels in this JSON file instead of the store")
	fs.StringVar(&s.labelConfig, "label-config", "", "label config JSON used by toggle and key")
	fs.Var(&s.execs, "e", "execute session command in immediate mode (may be specified multiple times)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	sources := 0
	for _, set := range []bool{s.image != "", s.video != "", s.fromClipboard} {
		if set {
			sources++
		}
	}
	if sources != 1 {
		return nil, fmt.Errorf("exactly one of -image, -video or -from-clipboard is required")
	}
	if s.at < 0 {
		return nil, fmt.Errorf("-at must not be negative")
	}
	if s.target == "" {
		switch {
		case s.image != "":
			s.target = s.image
		case s.video != "":
			s.target = fmt.Sprintf("%s@%g", s.video, s.at)
		default:
			s.target = "clipboard"
		}
	}
	return s, nil
}

func (s *sessionCmd) source() media.Source {
	switch {
	case s.image != "":
		return media.FileSource{Path: s.image}
	case s.video != "":
		return media.VideoSource{Path: s.video, Timestamp: time.Duration(s.at * float64(time.Second))}
	default:
		return media.ClipboardSource{}
	}
}

func (s *sessionCmd) Run() error {
	loaded, err := loadFrame(context.Background(), s.source(), s.config.MaxCanvasSize)
	if err != nil {
		return fmt.Errorf("failed to load frame: %w", err)
	}
	sess := newSession(s.root, loaded, s.target)
	defer sess.close()
	if s.labelConfig != "" {
		if err := readJSON(s.labelConfig, &sess.labelCfg); err != nil {
			return err
		}
		sess.labelCfg = sess.labelCfg.WithShortcuts()
	}
	if err := s.loadInitial(sess); err != nil {
		return err
	}

	if len(s.execs) > 0 {
		for _, line := range s.execs {
			done, err := sess.executeLine(line)
			if err != nil {
				return err
			}
			if done {
				break
			}
		}
		return nil
	}
	return sess.interactive(s.stdin)
}

func (s *sessionCmd) loadInitial(sess *session) error {
	if s.labelsFile != "" {
		var l labels.Labels
		if err := readJSON(s.labelsFile, &l); err != nil {
			return err
		}
		return sess.reset(l)
	}
	db, err := sess.openStore()
	if err != nil {
		return err
	}
	rec, err := db.Load(context.Background(), s.target)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return sess.reset(rec.Labels)
}

// session is the state of one editing session.
type session struct {
	id       string
	r        *root
	drafts   *draft.Store
	env      draft.Env
	pool     *mask.Pool
	frame    image.Image
	dims     geometry.Dimensions
	target   string
	labelCfg labels.Config
	db       *store.Store
}

func newSession(r *root, loaded media.Loaded, target string) *session {
	cfg := r.config
	pool := mask.NewPool(cfg.HistoryLength + 2)
	dims := loaded.Dimensions()
	initial := draft.New(labels.Draft{Dimensions: &dims}, cfg.Drawing(), loaded.Canvas)
	return &session{
		id: uuid.NewString(),
		r:  r,
		drafts: draft.NewStore(initial,
			draft.WithHistoryLimit(cfg.HistoryLength),
			draft.WithDebounce(cfg.HistoryDebounce),
			draft.WithReleaser(pool.Put),
		),
		env:    draft.Env{View: dims, Toaster: r.notifier, Pool: pool},
		pool:   pool,
		frame:  loaded.Image,
		dims:   dims,
		target: target,
	}
}

func (s *session) reset(l labels.Labels) error {
	if l.Dimensions == nil {
		dims := s.dims
		l.Dimensions = &dims
	}
	return s.drafts.Reset(l, s.drafts.Current().Canvas)
}

func (s *session) openStore() (*store.Store, error) {
	if s.db != nil {
		return s.db, nil
	}
	db, err := store.Open(s.r.config.StorePath())
	if err != nil {
		return nil, err
	}
	s.db = db
	return db, nil
}

func (s *session) close() {
	if s.db != nil {
		closeWithLog("store", s.db)
		s.db = nil
	}
}

func (s *session) interactive(in io.Reader) error {
	fmt.Fprintln(s.r.stdout, "Enter commands (type 'exit' to quit)")
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(s.r.stdout, "> ")
		if !scanner.Scan() {
			break
		}
		done, err := s.executeLine(scanner.Text())
		if err != nil {
			fmt.Fprintln(s.r.stderr, err)
			s.r.notifier.Push(notify.EventError, err.Error())
		}
		if done {
			break
		}
	}
	return scanner.Err()
}

// executeLine runs one session command. done reports an exit request.
func (s *session) executeLine(line string) (done bool, err error) {
	args := strings.Fields(line)
	if len(args) == 0 || strings.HasPrefix(args[0], "#") {
		return false, nil
	}
	cmd, args := strings.ToLower(args[0]), args[1:]
	switch cmd {
	case "exit", "quit":
		if s.drafts.Current().Dirty {
			fmt.Fprintln(s.r.stderr, "warning: unsaved changes discarded")
		}
		return true, nil
	case "help":
		fmt.Fprintln(s.r.stdout, sessionCommands)
	case "mode":
		if len(args) != 1 {
			return false, fmt.Errorf("mode requires boxes, polygons or masks")
		}
		m, err := draft.ParseMode(args[0])
		if err != nil {
			return false, err
		}
		s.drafts.Update(func(st draft.State) draft.State { return st.SetMode(m) })
	case "click":
		return false, s.click(args)
	case "flood":
		if len(args) != 1 || (args[0] != "on" && args[0] != "off") {
			return false, fmt.Errorf("flood requires on or off")
		}
		on := args[0] == "on"
		s.drafts.Update(func(st draft.State) draft.State { return st.SetFlood(on) })
	case "radius":
		v, err := oneFloat(cmd, args)
		if err != nil {
			return false, err
		}
		if v < 0 {
			return false, fmt.Errorf("radius must not be negative")
		}
		s.drafts.Update(func(st draft.State) draft.State { return st.SetRadius(v) })
	case "threshold":
		if len(args) != 1 {
			return false, fmt.Errorf("threshold requires one integer")
		}
		v, err := strconv.Atoi(args[0])
		if err != nil {
			return false, fmt.Errorf("threshold: %w", err)
		}
		s.drafts.Update(func(st draft.State) draft.State { return st.SetThreshold(v) })
	case "finish":
		s.drafts.Finish(true)
	case "delete":
		s.drafts.Finish(false)
	case "deselect":
		s.drafts.Update(draft.State.Deselect)
	case "label":
		return false, s.label(args)
	case "toggle":
		return false, s.toggle(args)
	case "key":
		return false, s.key(args)
	case "undo":
		if !s.drafts.Undo() {
			return false, fmt.Errorf("nothing to undo")
		}
	case "status":
		fmt.Fprintf(s.r.stdout, "session %s target=%s %s\n", s.id, s.target, s.drafts.Current().Summary())
	case "toasts":
		for _, t := range s.r.notifier.Toasts() {
			fmt.Fprintf(s.r.stdout, "%s\t%s\t%s\t%s\n", t.ID, t.At.Format(time.RFC3339), t.Event, t.Message)
		}
	case "dismiss":
		if len(args) != 1 {
			return false, fmt.Errorf("dismiss needs a toast id")
		}
		if !s.r.notifier.Dismiss(args[0]) {
			return false, fmt.Errorf("no toast %q", args[0])
		}
	case "export":
		path := ""
		if len(args) > 0 {
			path = args[0]
		}
		return false, writeJSON(s.r.stdout, path, s.export())
	case "save":
		return false, s.save()
	case "render":
		if len(args) != 1 {
			return false, fmt.Errorf("render requires an output file")
		}
		return false, writePNG(args[0], s.overlay())
	case "copy":
		if err := writeClipboardImage(s.overlay()); err != nil {
			return false, fmt.Errorf("failed to copy overlay: %w", err)
		}
		s.r.notifyCopy("overlay")
	default:
		return false, fmt.Errorf("unknown command %q (try help)", cmd)
	}
	return false, nil
}

const sessionCommands = `mode boxes|polygons|masks
click X Y [alt] [target N]
flood on|off
radius PX
threshold N
finish | delete | deselect
label image|active NAME [VALUE...]
toggle image|active NAME VALUE
key SHORTCUT
undo
status | toasts
dismiss ID
export [FILE]
save
render FILE
copy
exit`

func oneFloat(cmd string, args []string) (float64, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("%s requires one number", cmd)
	}
	v, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", cmd, err)
	}
	return v, nil
}

// click parses "X Y [alt] [target N]" with X and Y in frame pixels.
func (s *session) click(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("click requires X Y")
	}
	x, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return fmt.Errorf("click x: %w", err)
	}
	y, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return fmt.Errorf("click y: %w", err)
	}
	if s.dims.Empty() {
		return fmt.Errorf("click: frame has no size")
	}
	ev := draft.Pointer{
		Point:  geometry.Point{X: x / float64(s.dims.Width), Y: y / float64(s.dims.Height)},
		Target: -1,
	}
	for i := 2; i < len(args); i++ {
		switch args[i] {
		case "alt":
			ev.Alt = true
		case "target":
			if i+1 >= len(args) {
				return fmt.Errorf("target requires an index")
			}
			if ev.Target, err = strconv.Atoi(args[i+1]); err != nil {
				return fmt.Errorf("click target: %w", err)
			}
			i++
		default:
			return fmt.Errorf("unknown click option %q", args[i])
		}
	}
	return s.drafts.Click(ev, s.env)
}

func (s *session) label(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("label requires image|active NAME [VALUE...]")
	}
	name, values := args[1], args[2:]
	switch args[0] {
	case "image":
		s.drafts.Update(func(st draft.State) draft.State { return st.SetImageLabels(name, values) })
	case "active":
		if s.drafts.Current().Drawing.Active == nil {
			return fmt.Errorf("no active region")
		}
		s.drafts.Update(func(st draft.State) draft.State { return st.SetActiveLabels(name, values) })
	default:
		return fmt.Errorf("label scope must be image or active")
	}
	return nil
}

func (s *session) toggle(args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("toggle requires image|active NAME VALUE")
	}
	return s.toggleValue(args[0], args[1], args[2])
}

func (s *session) toggleValue(scope, name, value string) error {
	var configs []labels.LabelConfig
	switch scope {
	case "image":
		configs = s.labelCfg.Image
	case "active":
		if s.drafts.Current().Drawing.Active == nil {
			return fmt.Errorf("no active region")
		}
		configs = s.labelCfg.Regions
	default:
		return fmt.Errorf("toggle scope must be image or active")
	}
	cfg := labels.LabelConfig{Name: name, Multiple: true, Freeform: true}
	for _, c := range configs {
		if c.Name == name {
			cfg = c
			break
		}
	}
	if cfg.Disabled {
		return fmt.Errorf("label %s is disabled", name)
	}
	if scope == "image" {
		s.drafts.Update(func(st draft.State) draft.State { return st.ToggleImageLabel(cfg, value) })
	} else {
		s.drafts.Update(func(st draft.State) draft.State { return st.ToggleActiveLabel(cfg, value) })
	}
	return nil
}

// key toggles the option bound to a shortcut, in the region labels when a
// region is active and the image labels otherwise.
func (s *session) key(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("key requires one shortcut")
	}
	scope, configs := "image", s.labelCfg.Image
	if s.drafts.Current().Drawing.Active != nil {
		scope, configs = "active", s.labelCfg.Regions
	}
	want := strings.ToLower(args[0])
	for _, c := range configs {
		for _, o := range c.Options {
			if o.Shortcut == want {
				return s.toggleValue(scope, c.Name, o.Name)
			}
		}
	}
	return fmt.Errorf("no %s label bound to %q", scope, args[0])
}

func (s *session) export() labels.Labels {
	dims := s.dims
	return s.drafts.Current().Export(&dims)
}

func (s *session) save() error {
	db, err := s.openStore()
	if err != nil {
		return err
	}
	rec, err := db.Save(context.Background(), s.target, s.export())
	if err != nil {
		return err
	}
	s.drafts.MarkClean()
	fmt.Fprintf(s.r.stderr, "saved %s (%s)\n", s.target, rec.ID)
	s.r.notifySave(s.target)
	return nil
}

func (s *session) overlay() *image.RGBA {
	opts := render.DefaultOptions()
	if s.r.activeTheme != nil {
		opts.Theme = s.r.activeTheme
	}
	return render.Overlay(s.frame, s.drafts.Current(), opts)
}
