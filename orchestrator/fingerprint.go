package orchestrator

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/helpmesh/helpmesh/internal/util"
)

// Fingerprint derives the stable request fingerprint for one logical turn.
// The same (agent, conversation, latest user message id, message text up to
// casing and whitespace) always hashes to the same value, so replayed
// delivery of a request produces the same usage idempotency key.
func Fingerprint(agentID, conversationID, latestUserMessageID, userMessage string) string {
	payload := strings.Join([]string{
		agentID,
		conversationID,
		latestUserMessageID,
		util.NormalizeText(userMessage),
	}, "|")
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

// UsageKey combines a fingerprint with the execution mode ("workflow" or
// "llm-<model>") to form the idempotency key handed to the usage recorder.
func UsageKey(fingerprint, mode string) string {
	return fingerprint + ":" + mode
}
