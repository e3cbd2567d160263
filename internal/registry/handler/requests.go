package handler

// RegisterRequest claims a free name for the authenticated caller.
type RegisterRequest struct {
	Name        string `json:"name"`
	ContentHash string `json:"content_hash"`
	Target      string `json:"target"`
}

// UpdateTargetRequest repoints a name.
type UpdateTargetRequest struct {
	Target string `json:"target"`
}

// UpdateContentHashRequest replaces a name's content hash.
type UpdateContentHashRequest struct {
	ContentHash string `json:"content_hash"`
}

// TransferRequest hands a name to a new owner.
type TransferRequest struct {
	NewOwner string `json:"new_owner"`
}
