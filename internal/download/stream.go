package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/grafov/m3u8"

	"github.com/jmagar/bookbeat-cli/internal/model"
)

// ErrEncryptedStream is returned for HLS playlists with encrypted segments.
var ErrEncryptedStream = errors.New("encrypted stream segments are not supported")

// FetchStream assembles an asset from its stream location. An HLS playlist is
// fetched segment by segment; otherwise the license tracks are requested as
// byte ranges in order. A stream without tracks is fetched as a whole.
func (f *Fetcher) FetchStream(ctx context.Context, lic *model.License, location string, sink io.Writer, onChunk func(n int)) (int64, error) {
	if isPlaylist(location) {
		return f.fetchPlaylist(ctx, location, sink, onChunk, true)
	}
	if len(lic.Tracks) == 0 {
		return f.Fetch(ctx, location, lic.FileSize, sink, onChunk)
	}
	var total int64
	for i, track := range lic.Tracks {
		if track.End < track.Start {
			return total, fmt.Errorf("track %d: invalid range %d-%d", i+1, track.Start, track.End)
		}
		header := http.Header{}
		header.Set("Range", fmt.Sprintf("bytes=%d-%d", track.Start, track.End))
		n, err := f.fetchWith(ctx, location, header, sink, onChunk)
		total += n
		if err != nil {
			return total, fmt.Errorf("track %d: %w", i+1, err)
		}
	}
	return total, nil
}

func (f *Fetcher) fetchWith(ctx context.Context, location string, header http.Header, sink io.Writer, onChunk func(n int)) (int64, error) {
	resp, err := f.get(ctx, location, header)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	return copyChunks(ctx, resp.Body, sink, chunkSize, onChunk)
}

// fetchPlaylist downloads every segment of a media playlist. A master
// playlist is resolved to its highest-bandwidth variant once.
func (f *Fetcher) fetchPlaylist(ctx context.Context, location string, sink io.Writer, onChunk func(n int), followMaster bool) (int64, error) {
	resp, err := f.get(ctx, location, nil)
	if err != nil {
		return 0, err
	}
	playlist, listType, err := m3u8.DecodeFrom(resp.Body, true)
	resp.Body.Close()
	if err != nil {
		return 0, fmt.Errorf("parse playlist: %w", err)
	}

	switch listType {
	case m3u8.MASTER:
		master := playlist.(*m3u8.MasterPlaylist)
		if !followMaster || len(master.Variants) == 0 {
			return 0, errors.New("master playlist has no usable variant")
		}
		sort.Slice(master.Variants, func(x, y int) bool {
			return master.Variants[x].Bandwidth > master.Variants[y].Bandwidth
		})
		variant, err := resolveRef(location, master.Variants[0].URI)
		if err != nil {
			return 0, err
		}
		return f.fetchPlaylist(ctx, variant, sink, onChunk, false)
	case m3u8.MEDIA:
		media := playlist.(*m3u8.MediaPlaylist)
		if encrypted(media.Key) {
			return 0, ErrEncryptedStream
		}
		var total int64
		for i, seg := range media.Segments {
			if seg == nil {
				break
			}
			if encrypted(seg.Key) {
				return total, ErrEncryptedStream
			}
			segURL, err := resolveRef(location, seg.URI)
			if err != nil {
				return total, err
			}
			n, err := f.Fetch(ctx, segURL, 0, sink, onChunk)
			total += n
			if err != nil {
				return total, fmt.Errorf("segment %d: %w", i+1, err)
			}
		}
		return total, nil
	}
	return 0, fmt.Errorf("unsupported playlist type %v", listType)
}

func encrypted(key *m3u8.Key) bool {
	return key != nil && key.Method != "" && !strings.EqualFold(key.Method, "NONE")
}

func isPlaylist(location string) bool {
	u, err := url.Parse(location)
	if err != nil {
		return false
	}
	return strings.HasSuffix(strings.ToLower(u.Path), ".m3u8")
}

// resolveRef resolves a playlist entry against the playlist URL, keeping the
// playlist's query string when the entry has none.
func resolveRef(base, ref string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse playlist url: %w", err)
	}
	r, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("parse playlist entry %q: %w", ref, err)
	}
	u := b.ResolveReference(r)
	if u.RawQuery == "" {
		u.RawQuery = b.RawQuery
	}
	return u.String(), nil
}
