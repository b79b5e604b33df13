//go:build !linux

package notify

func send(string) error {
	return nil
}
