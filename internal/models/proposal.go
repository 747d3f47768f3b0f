package models

import "time"

// Proposal represents one user's offer to trade specific products with
// another user. Field names on the wire follow the SPA contract.
type Proposal struct {
	ID            int64     `json:"id"`
	FromUserID    int64     `json:"fromUserId"`
	ToUserID      int64     `json:"toUserId"`
	ProductFromID []int64   `json:"productFromId"`
	ProductToID   []int64   `json:"productToId"`
	Status        string    `json:"status"` // PENDING, ACCEPTED, REJECTED, CANCELED
	CreatedAt     time.Time `json:"createdAt"`
}

// ProposalView is a Proposal decorated with display data resolved from the
// product and user collaborators for list and detail rendering.
type ProposalView struct {
	Proposal
	FromUser          *User    `json:"fromUser,omitempty"`
	ToUser            *User    `json:"toUser,omitempty"`
	ProductFromTitles []string `json:"productFromTitles,omitempty"`
	ProductToTitles   []string `json:"productToTitles,omitempty"`
}

// ProposalPage is one page of a user's incoming or outgoing proposals.
type ProposalPage struct {
	Content    []ProposalView `json:"content"`
	TotalPages int            `json:"totalPages"`
}
