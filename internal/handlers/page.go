package handlers

import (
	"context"
	_ "embed"
	"io"

	"github.com/a-h/templ"
)

//go:embed static/index.html
var indexHTML []byte

// IndexPage is the single-page front end.
func IndexPage() templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := w.Write(indexHTML)
		return err
	})
}
