package entities

import (
	"errors"
	"os"
)

// PlayableResource is a locally addressable handle to response audio. It
// wraps either a remote URL or a local file minted from decoded audio bytes.
// The Playback Controller owns the resource and must Release it before
// installing a replacement.
type PlayableResource struct {
	URL  string
	Path string
}

// Remote reports whether playback must fetch the audio over the network.
func (r *PlayableResource) Remote() bool {
	return r != nil && r.Path == "" && r.URL != ""
}

// Release frees the backing storage of a file-backed resource. Releasing a
// remote or already-released resource is a no-op.
func (r *PlayableResource) Release() error {
	if r == nil || r.Path == "" {
		return nil
	}
	path := r.Path
	r.Path = ""
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
