package models

// ResourceKind tells how a resolved resource is rendered.
type ResourceKind string

const (
	// ResourceKindURL is a time-limited view URL for a plaintext item.
	ResourceKindURL ResourceKind = "url"
	// ResourceKindBlob is an object URL over decrypted in-memory bytes.
	ResourceKindBlob ResourceKind = "blob"
)

// ResolvedResource is a displayable resource for one item. Blob resources
// hold memory until released.
type ResolvedResource struct {
	ItemID   string       `json:"itemId"`
	Kind     ResourceKind `json:"kind"`
	Value    string       `json:"value"`
	MimeType string       `json:"mimeType"`
}
