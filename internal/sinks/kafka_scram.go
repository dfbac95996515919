package sinks

import (
	"crypto/sha256"
	"crypto/sha512"

	"github.com/xdg-go/scram"
)

var (
	// SHA256 is the SCRAM hash generator for the SCRAM-SHA-256 mechanism.
	SHA256 scram.HashGeneratorFcn = sha256.New

	// SHA512 is the SCRAM hash generator for the SCRAM-SHA-512 mechanism.
	SHA512 scram.HashGeneratorFcn = sha512.New
)

// XDGSCRAMClient adapts github.com/xdg-go/scram to sarama.SCRAMClient.
type XDGSCRAMClient struct {
	*scram.Client
	*scram.ClientConversation
	scram.HashGeneratorFcn
}

// Begin starts a new SCRAM conversation for the given credentials.
func (x *XDGSCRAMClient) Begin(userName, password, authzID string) (err error) {
	x.Client, err = x.HashGeneratorFcn.NewClient(userName, password, authzID)
	if err != nil {
		return err
	}
	x.ClientConversation = x.Client.NewConversation()
	return nil
}

// Step advances the SCRAM handshake by one challenge/response round.
func (x *XDGSCRAMClient) Step(challenge string) (response string, err error) {
	return x.ClientConversation.Step(challenge)
}

// Done reports whether the SCRAM handshake has completed.
func (x *XDGSCRAMClient) Done() bool {
	return x.ClientConversation.Done()
}
