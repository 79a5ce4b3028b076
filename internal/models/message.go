package models

// EncryptedMessage is one stored chat message. Only ciphertext is kept;
// content and author are sealed separately, each with its own nonce.
type EncryptedMessage struct {
	// Ciphertext is base64 AES-GCM output with the tag appended
	Ciphertext string

	// Nonce is the base64 96-bit nonce used for Ciphertext
	Nonce string

	AuthorCiphertext string
	AuthorNonce      string

	// Timestamp is milliseconds since epoch at encryption time
	Timestamp int64
}

// Message is the decrypted view of an EncryptedMessage
type Message struct {
	Username  string `json:"username"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"`
}

// SendMessageRequest is the request body for posting a message
type SendMessageRequest struct {
	Message string `json:"message"`
}

// SendMessageResponse acknowledges a stored message
type SendMessageResponse struct {
	Success bool `json:"success"`
}

// GetMessagesResponse is the response for fetching messages
type GetMessagesResponse struct {
	Messages []Message `json:"messages"`
}
