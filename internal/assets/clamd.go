package assets

import (
	"bytes"
	"context"
	"fmt"

	"github.com/dutchcoders/go-clamd"
)

// ClamdScanner streams uploads to a clamd daemon.
type ClamdScanner struct {
	addr string
}

func NewClamdScanner(addr string) *ClamdScanner {
	return &ClamdScanner{addr: addr}
}

func (s *ClamdScanner) Scan(ctx context.Context, data []byte) error {
	client := clamd.NewClamd(s.addr)

	abortChan := make(chan bool)
	defer close(abortChan)

	scanChan, err := client.ScanStream(bytes.NewReader(data), abortChan)
	if err != nil {
		return fmt.Errorf("scan file: %w", err)
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case result, ok := <-scanChan:
			if !ok {
				return nil
			}
			if result.Status != clamd.RES_OK {
				return fmt.Errorf("%w: %s", ErrInfected, result.Description)
			}
		}
	}
}
