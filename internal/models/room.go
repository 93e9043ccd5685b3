package models

import "time"

// Room is a chat scoped to one product and exactly two members.
type Room struct {
	ID          string    `db:"id" json:"id"`
	ProductID   string    `db:"product_id" json:"product_id"`
	BuyerID     string    `db:"buyer_id" json:"buyer_id"`
	SellerID    string    `db:"seller_id" json:"seller_id"`
	LastMessage string    `db:"last_message" json:"last_message"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Members returns the ordered member pair [buyer, seller].
func (r Room) Members() []string {
	return []string{r.BuyerID, r.SellerID}
}

// HasMember reports whether userID is one of the two members.
func (r Room) HasMember(userID string) bool {
	return r.BuyerID == userID || r.SellerID == userID
}

// OtherMember returns the member that is not userID. For a self-chat both
// members are equal and the same id comes back.
func (r Room) OtherMember(userID string) string {
	if r.BuyerID == userID {
		return r.SellerID
	}
	return r.BuyerID
}

// RoomView is the client projection of a room with resolved members.
type RoomView struct {
	ID          string    `json:"_id"`
	Product     string    `json:"product"`
	Members     []UserRef `json:"members"`
	LastMessage string    `json:"lastMessage"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// RoomInit is the result of initialising a chat for a product.
type RoomInit struct {
	Room    RoomView       `json:"room"`
	Seller  UserRef        `json:"seller"`
	Product ProductSummary `json:"product"`
	Created bool           `json:"created"`
}

// RoomListing is one entry of a user's inbox.
type RoomListing struct {
	RoomID      string         `json:"roomId"`
	Room        RoomView       `json:"room"`
	Seller      UserRef        `json:"seller"`
	Product     ProductSummary `json:"product"`
	LastMessage string         `json:"lastMessage"`
	Unread      bool           `json:"unread"`
}
