// Package tools implements the operations the server exposes: recording
// lifecycle, narration synthesis, sync, assembly, and media inspection. Each
// method takes a typed request and returns a typed response, so the wire
// layer stays a thin dispatch table.
package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/demoreel/demoreel/internal/avsync"
	"github.com/demoreel/demoreel/internal/capture"
	"github.com/demoreel/demoreel/internal/config"
	"github.com/demoreel/demoreel/internal/logging"
	"github.com/demoreel/demoreel/internal/naming"
	"github.com/demoreel/demoreel/internal/probe"
	"github.com/demoreel/demoreel/internal/session"
	"github.com/demoreel/demoreel/internal/timeline"
	"github.com/demoreel/demoreel/internal/tts"
	"github.com/demoreel/demoreel/internal/winmgr"
)

// Toolbox wires the packages together behind the tool surface.
type Toolbox struct {
	cfg         *config.Config
	log         *logging.Logger
	session     *session.Session
	resolver    *naming.CollisionResolver
	backendName string
}

// New builds the toolbox: picks a capture backend and wraps it in a session.
func New(cfg *config.Config, log *logging.Logger) (*Toolbox, error) {
	backend, err := capture.New(cfg, log)
	if err != nil {
		return nil, err
	}
	log.Info("capture backend: %s", backend.Name())
	return &Toolbox{
		cfg:         cfg,
		log:         log,
		session:     session.New(backend),
		resolver:    naming.NewCollisionResolver(),
		backendName: backend.Name(),
	}, nil
}

// Close stops any live recording during shutdown.
func (t *Toolbox) Close(ctx context.Context) error {
	return t.session.Close(ctx)
}

// resolvePath turns a request path into an absolute one: absolute paths pass
// through, relative ones land in the recordings directory.
func (t *Toolbox) resolvePath(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(t.cfg.RecordingsDir, p)
}

// resolveOutput additionally creates the parent directory so transforms
// never fail on a missing folder.
func (t *Toolbox) resolveOutput(p string) (string, error) {
	abs := t.resolvePath(p)
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return "", err
	}
	return abs, nil
}

// --- Recording lifecycle ---

type StartRecordingRequest struct {
	OutputFilename string `json:"output_filename,omitempty"`
	WindowTitle    string `json:"window_title,omitempty"`
	Width          int    `json:"width,omitempty"`
	Height         int    `json:"height,omitempty"`
	FPS            int    `json:"fps,omitempty"`
	ScreenIndex    *int   `json:"screen_index,omitempty"`
}

type StartRecordingResponse struct {
	OutputPath string `json:"output_path"`
	StartedAt  string `json:"started_at"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	FPS        int    `json:"fps"`
	Backend    string `json:"backend,omitempty"`
	Orphans    int    `json:"orphans_cleaned,omitempty"`
}

// StartRecording begins a capture. Missing options fall back to the
// configured defaults; a missing filename gets a timestamped auto name.
// Orphaned capture processes from a crashed server are cleaned up first so
// they cannot corrupt the new recording. The sweep only runs while the
// session is idle: with a recording live there is nothing stale to reap, and
// a rejected duplicate start must leave the original untouched.
func (t *Toolbox) StartRecording(ctx context.Context, req StartRecordingRequest) (*StartRecordingResponse, error) {
	var orphans int
	if t.session.Status().State == session.StateIdle {
		n, err := capture.CleanOrphans(t.cfg.RecordingsDir, t.log)
		if err != nil {
			t.log.Warn("orphan sweep failed: %v", err)
		}
		orphans = n
	}

	name := req.OutputFilename
	if name == "" {
		name = naming.RecordingName(time.Now())
	}
	name = naming.EnsureExt(name, ".mp4")
	outputPath, err := t.resolveOutput(t.resolver.Resolve(uuid.NewString(), t.resolvePath(name)))
	if err != nil {
		return nil, err
	}

	opts := capture.Options{
		Width:       req.Width,
		Height:      req.Height,
		FPS:         req.FPS,
		ScreenIndex: t.cfg.ScreenIndex,
		OutputPath:  outputPath,
	}
	if opts.Width <= 0 {
		opts.Width = t.cfg.Width
	}
	if opts.Height <= 0 {
		opts.Height = t.cfg.Height
	}
	if opts.FPS <= 0 {
		opts.FPS = t.cfg.FPS
	}
	if req.ScreenIndex != nil {
		opts.ScreenIndex = *req.ScreenIndex
	}

	info, err := t.session.Start(ctx, capture.Target{WindowTitle: req.WindowTitle}, opts)
	if err != nil {
		return nil, err
	}
	return &StartRecordingResponse{
		OutputPath: info.OutputPath,
		StartedAt:  info.StartedAt.Format(time.RFC3339),
		Width:      opts.Width,
		Height:     opts.Height,
		FPS:        opts.FPS,
		Backend:    t.backendName,
		Orphans:    orphans,
	}, nil
}

type StopRecordingResponse struct {
	OutputPath string  `json:"output_path"`
	Elapsed    float64 `json:"elapsed_seconds"`
	Duration   float64 `json:"duration_seconds"`
	SizeBytes  int64   `json:"size_bytes"`
}

// StopRecording ends the live capture and reports the verified artifact.
func (t *Toolbox) StopRecording(ctx context.Context) (*StopRecordingResponse, error) {
	info, err := t.session.Stop(ctx)
	if err != nil {
		return nil, err
	}
	t.log.Success("recorded %s (%s)", info.OutputPath, fmtSeconds(info.Artifact.Duration))
	return &StopRecordingResponse{
		OutputPath: info.OutputPath,
		Elapsed:    info.Elapsed,
		Duration:   info.Artifact.Duration,
		SizeBytes:  info.Artifact.SizeBytes,
	}, nil
}

type RecordingStatusResponse struct {
	State        string  `json:"state"`
	OutputPath   string  `json:"output_path,omitempty"`
	Elapsed      float64 `json:"elapsed_seconds,omitempty"`
	ProcessAlive bool    `json:"process_alive"`
}

// RecordingStatus reports the session state without side effects. A recording
// state with process_alive false means the capture died underneath us.
func (t *Toolbox) RecordingStatus(ctx context.Context) (*RecordingStatusResponse, error) {
	st := t.session.Status()
	return &RecordingStatusResponse{
		State:        string(st.State),
		OutputPath:   st.OutputPath,
		Elapsed:      st.Elapsed,
		ProcessAlive: st.ProcessAlive,
	}, nil
}

// --- Narration ---

type TextToSpeechRequest struct {
	Text           string `json:"text"`
	OutputFilename string `json:"output_filename,omitempty"`
	Voice          string `json:"voice,omitempty"`
	Engine         string `json:"engine,omitempty"`
}

type TextToSpeechResponse struct {
	OutputPath string  `json:"output_path"`
	Engine     string  `json:"engine"`
	Voice      string  `json:"voice,omitempty"`
	Duration   float64 `json:"duration_seconds"`
	SizeBytes  int64   `json:"size_bytes"`
}

// TextToSpeech synthesizes narration audio.
func (t *Toolbox) TextToSpeech(ctx context.Context, req TextToSpeechRequest) (*TextToSpeechResponse, error) {
	name := req.OutputFilename
	if name == "" {
		name = naming.SpeechName(time.Now())
	}
	name = naming.EnsureExt(name, ".mp3")
	outputPath, err := t.resolveOutput(name)
	if err != nil {
		return nil, err
	}

	res, err := tts.Synthesize(ctx, t.cfg, req.Text, outputPath, req.Voice, req.Engine)
	if err != nil {
		return nil, err
	}
	t.log.Success("synthesized %s with %s (%s)", res.OutputPath, res.Engine, fmtSeconds(res.Duration))
	return &TextToSpeechResponse{
		OutputPath: res.OutputPath,
		Engine:     res.Engine,
		Voice:      res.Voice,
		Duration:   res.Duration,
		SizeBytes:  res.SizeBytes,
	}, nil
}

// --- Sync ---

type AdjustVideoToAudioRequest struct {
	VideoPath  string `json:"video_path"`
	AudioPath  string `json:"audio_path"`
	OutputPath string `json:"output_path"`
	MergeAudio *bool  `json:"merge_audio,omitempty"` // Defaults to true.
}

type AdjustVideoToAudioResponse struct {
	OutputPath     string  `json:"output_path"`
	Action         string  `json:"action"`
	SpeedFactor    float64 `json:"speed_factor"`
	VideoDuration  float64 `json:"video_duration_seconds"`
	AudioDuration  float64 `json:"audio_duration_seconds"`
	OutputDuration float64 `json:"output_duration_seconds"`
	SizeBytes      int64   `json:"size_bytes"`
	Warning        string  `json:"warning,omitempty"`
}

// AdjustVideoToAudio speed-matches a recording to its narration and, by
// default, merges the narration in as the audio track.
func (t *Toolbox) AdjustVideoToAudio(ctx context.Context, req AdjustVideoToAudioRequest) (*AdjustVideoToAudioResponse, error) {
	videoPath := t.resolvePath(req.VideoPath)
	audioPath := t.resolvePath(req.AudioPath)
	outputPath, err := t.resolveOutput(req.OutputPath)
	if err != nil {
		return nil, err
	}
	mergeAudio := req.MergeAudio == nil || *req.MergeAudio

	plan, err := avsync.PlanFiles(ctx, videoPath, audioPath)
	if err != nil {
		return nil, err
	}
	if plan.Warning != "" {
		t.log.Warn("%s", plan.Warning)
	}
	t.log.Info("sync %s: %s at %.4fx", filepath.Base(videoPath), plan.Action, plan.SpeedFactor)

	res, err := avsync.Apply(ctx, plan, videoPath, audioPath, outputPath, mergeAudio, t.cfg.Verbose)
	if err != nil {
		return nil, err
	}
	return &AdjustVideoToAudioResponse{
		OutputPath:     res.OutputPath,
		Action:         string(res.Action),
		SpeedFactor:    res.SpeedFactor,
		VideoDuration:  res.VideoDuration,
		AudioDuration:  res.AudioDuration,
		OutputDuration: res.OutputDuration,
		SizeBytes:      res.SizeBytes,
		Warning:        res.Warning,
	}, nil
}

// --- Assembly ---

type ConcatenateVideosRequest struct {
	VideoPaths []string `json:"video_paths"`
	OutputPath string   `json:"output_path"`
}

type ArtifactResponse struct {
	OutputPath   string  `json:"output_path"`
	Duration     float64 `json:"duration_seconds"`
	SizeBytes    int64   `json:"size_bytes"`
	SegmentCount int     `json:"segment_count,omitempty"`
	TrackCount   int     `json:"track_count,omitempty"`
	StartTime    float64 `json:"start_time,omitempty"`
}

// ConcatenateVideos joins segments in order without re-encoding.
func (t *Toolbox) ConcatenateVideos(ctx context.Context, req ConcatenateVideosRequest) (*ArtifactResponse, error) {
	segments := make([]string, len(req.VideoPaths))
	for i, p := range req.VideoPaths {
		segments[i] = t.resolvePath(p)
	}
	outputPath, err := t.resolveOutput(req.OutputPath)
	if err != nil {
		return nil, err
	}

	art, err := timeline.Concatenate(ctx, segments, outputPath, t.cfg.Verbose)
	if err != nil {
		return nil, err
	}
	t.log.Success("concatenated %d segments into %s", len(segments), art.Path)
	resp := artifactResponse(art)
	resp.SegmentCount = len(segments)
	return resp, nil
}

type AudioTrack struct {
	AudioPath string  `json:"audio_path"`
	StartTime float64 `json:"start_time"`
}

type MergeAudioTracksRequest struct {
	VideoPath         string       `json:"video_path"`
	Tracks            []AudioTrack `json:"tracks"`
	OutputPath        string       `json:"output_path"`
	KeepOriginalAudio bool         `json:"keep_original_audio,omitempty"`
}

// MergeAudioTracks overlays narration tracks onto a video at offsets.
func (t *Toolbox) MergeAudioTracks(ctx context.Context, req MergeAudioTracksRequest) (*ArtifactResponse, error) {
	placements := make([]timeline.TrackPlacement, len(req.Tracks))
	for i, tr := range req.Tracks {
		placements[i] = timeline.TrackPlacement{
			Path:      t.resolvePath(tr.AudioPath),
			StartTime: tr.StartTime,
		}
	}
	outputPath, err := t.resolveOutput(req.OutputPath)
	if err != nil {
		return nil, err
	}

	art, err := timeline.MergeAudioTracks(ctx, t.resolvePath(req.VideoPath), placements, outputPath, req.KeepOriginalAudio, t.cfg.Verbose)
	if err != nil {
		return nil, err
	}
	t.log.Success("merged %d audio tracks into %s", len(placements), art.Path)
	resp := artifactResponse(art)
	resp.TrackCount = len(placements)
	return resp, nil
}

type TrimVideoRequest struct {
	VideoPath  string  `json:"video_path"`
	OutputPath string  `json:"output_path"`
	StartTime  float64 `json:"start_time"`
	EndTime    float64 `json:"end_time,omitempty"`
	Duration   float64 `json:"duration,omitempty"`
}

// TrimVideo extracts a range by stream copy.
func (t *Toolbox) TrimVideo(ctx context.Context, req TrimVideoRequest) (*ArtifactResponse, error) {
	outputPath, err := t.resolveOutput(req.OutputPath)
	if err != nil {
		return nil, err
	}
	art, err := timeline.Trim(ctx, t.resolvePath(req.VideoPath), outputPath, req.StartTime, req.EndTime, req.Duration, t.cfg.Verbose)
	if err != nil {
		return nil, err
	}
	resp := artifactResponse(art)
	resp.StartTime = req.StartTime
	return resp, nil
}

func artifactResponse(a timeline.Artifact) *ArtifactResponse {
	return &ArtifactResponse{OutputPath: a.Path, Duration: a.Duration, SizeBytes: a.SizeBytes}
}

// --- Inspection ---

type MediaInfoRequest struct {
	Path string `json:"path"`
}

type MediaInfoResponse struct {
	Path       string  `json:"path"`
	Duration   float64 `json:"duration_seconds"`
	SizeBytes  int64   `json:"size_bytes"`
	HasVideo   bool    `json:"has_video"`
	HasAudio   bool    `json:"has_audio"`
	Width      int     `json:"width,omitempty"`
	Height     int     `json:"height,omitempty"`
	VideoCodec string  `json:"video_codec,omitempty"`
	FrameRate  string  `json:"frame_rate,omitempty"`
	AudioCodec string  `json:"audio_codec,omitempty"`
	SampleRate int     `json:"sample_rate,omitempty"`
	Channels   int     `json:"channels,omitempty"`
}

// MediaInfo probes one file.
func (t *Toolbox) MediaInfo(ctx context.Context, req MediaInfoRequest) (*MediaInfoResponse, error) {
	info, err := probe.Probe(ctx, t.resolvePath(req.Path))
	if err != nil {
		return nil, err
	}
	return &MediaInfoResponse{
		Path:       info.Path,
		Duration:   info.Duration,
		SizeBytes:  info.SizeBytes,
		HasVideo:   info.HasVideo(),
		HasAudio:   info.HasAudio(),
		Width:      info.Width,
		Height:     info.Height,
		VideoCodec: info.VideoCodec,
		FrameRate:  info.FrameRate,
		AudioCodec: info.AudioCodec,
		SampleRate: info.SampleRate,
		Channels:   info.Channels,
	}, nil
}

type MediaFile struct {
	Name      string `json:"name"`
	Path      string `json:"path"`
	SizeBytes int64  `json:"size_bytes"`
	Modified  string `json:"modified"`
}

type ListMediaResponse struct {
	Dir   string      `json:"dir"`
	Files []MediaFile `json:"files"`
}

var mediaExtensions = map[string]bool{
	".mp4": true, ".mov": true, ".mkv": true, ".webm": true, ".avi": true,
	".mp3": true, ".wav": true, ".aac": true, ".m4a": true, ".flac": true,
	".ogg": true, ".aiff": true,
}

// ListMedia lists media files in the recordings directory, newest first.
func (t *Toolbox) ListMedia(ctx context.Context) (*ListMediaResponse, error) {
	entries, err := os.ReadDir(t.cfg.RecordingsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return &ListMediaResponse{Dir: t.cfg.RecordingsDir, Files: []MediaFile{}}, nil
		}
		return nil, err
	}

	files := []MediaFile{}
	for _, e := range entries {
		if e.IsDir() || !mediaExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, MediaFile{
			Name:      e.Name(),
			Path:      filepath.Join(t.cfg.RecordingsDir, e.Name()),
			SizeBytes: fi.Size(),
			Modified:  fi.ModTime().Format(time.RFC3339),
		})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Modified > files[j].Modified })
	return &ListMediaResponse{Dir: t.cfg.RecordingsDir, Files: files}, nil
}

type ListWindowsResponse struct {
	Windows []winmgr.Window `json:"windows"`
}

// ListWindows enumerates visible top-level windows.
func (t *Toolbox) ListWindows(ctx context.Context) (*ListWindowsResponse, error) {
	windows, err := winmgr.List(ctx)
	if err != nil {
		return nil, err
	}
	return &ListWindowsResponse{Windows: windows}, nil
}

type ListScreensResponse struct {
	Screens []winmgr.Screen `json:"screens"`
}

// ListScreens enumerates attached displays.
func (t *Toolbox) ListScreens(ctx context.Context) (*ListScreensResponse, error) {
	screens, err := winmgr.ListScreens(ctx)
	if err != nil {
		return nil, err
	}
	return &ListScreensResponse{Screens: screens}, nil
}

func fmtSeconds(s float64) string {
	return fmt.Sprintf("%.1fs", s)
}
