package testutil

import "fmt"

// Stream is the recorded state of one played stream.
type Stream struct {
	File    string
	Loop    bool
	Volume  int
	Balance int
	Playing bool
}

// Audio is a recording audio collaborator. Streams keep playing until the
// test calls Finish or the engine calls Stop.
type Audio struct {
	// Missing lists files Play fails for.
	Missing map[string]bool

	Streams map[int]*Stream
	Volumes []int // every SetVolume value in call order

	nextHandle int
}

// NewAudio creates an empty recording audio collaborator.
func NewAudio() *Audio {
	return &Audio{
		Missing: make(map[string]bool),
		Streams: make(map[int]*Stream),
	}
}

func (a *Audio) Play(file string, loop bool) (int, error) {
	if a.Missing[file] {
		return 0, fmt.Errorf("sound %s not found", file)
	}
	a.nextHandle++
	a.Streams[a.nextHandle] = &Stream{File: file, Loop: loop, Playing: true}
	return a.nextHandle, nil
}

func (a *Audio) Stop(handle int) {
	if s, ok := a.Streams[handle]; ok {
		s.Playing = false
	}
}

func (a *Audio) IsPlaying(handle int) bool {
	s, ok := a.Streams[handle]
	return ok && s.Playing
}

func (a *Audio) SetVolume(handle, volume int) {
	a.Volumes = append(a.Volumes, volume)
	if s, ok := a.Streams[handle]; ok {
		s.Volume = volume
	}
}

func (a *Audio) SetBalance(handle, balance int) {
	if s, ok := a.Streams[handle]; ok {
		s.Balance = balance
	}
}

// Finish marks handle as no longer playing, as if the stream ended.
func (a *Audio) Finish(handle int) {
	a.Stop(handle)
}

// Playing returns the handles of streams still playing file.
func (a *Audio) Playing(file string) []int {
	var out []int
	for h, s := range a.Streams {
		if s.File == file && s.Playing {
			out = append(out, h)
		}
	}
	return out
}
