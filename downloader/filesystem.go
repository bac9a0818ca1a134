package downloader

import (
	"context"
	"fmt"
	"net/url"
	"os"
)

// Serves file:// URLs from local disk and hands everything else to
// Next. Lets a static archive or recorded realtime feeds be used
// without a network.
type Filesystem struct {
	Next Downloader
}

func NewFilesystem(next Downloader) *Filesystem {
	return &Filesystem{Next: next}
}

func (f *Filesystem) Get(
	ctx context.Context,
	rawURL string,
	headers map[string]string,
	options GetOptions,
) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme != "file" {
		if f.Next == nil {
			return nil, &FetchError{URL: rawURL, Err: fmt.Errorf("no downloader for url")}
		}
		return f.Next.Get(ctx, rawURL, headers, options)
	}

	fh, err := os.Open(u.Path)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: err}
	}
	defer fh.Close()

	return readLimited(rawURL, fh, options.MaxSize)
}
