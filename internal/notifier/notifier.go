package notifier

import "context"

// Message is a rendered brief ready for delivery.
type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// blocking runs a call that has no context support and gives up waiting
// when ctx is done. The call itself keeps running in the background.
func blocking(ctx context.Context, call func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- call()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
