package model

// Selection is a client-proposed seat purchase: the seat plus a fare
// category label (adult, child, ...).  The category is recorded on the
// receipt line but never affects the computed price.
type Selection struct {
	SeatID   string `json:"seatId"`
	Category string `json:"category"`
}

// ReceiptLine is the per-seat detail of a confirmed purchase.
type ReceiptLine struct {
	SeatID     string    `json:"seatId"`
	Class      SeatClass `json:"class"`
	Category   string    `json:"category"`
	PriceCents uint32    `json:"priceCents"`
}

// Receipt is produced after a confirm transaction commits.  It is
// delivered exactly once to the confirming connection and never
// persisted; the seats table alone is the durable record of the sale.
type Receipt struct {
	Flight        Flight        `json:"flight"`
	PaymentMethod string        `json:"paymentMethod"`
	Buyer         string        `json:"buyer"`
	SeatCount     int           `json:"seatCount"`
	Lines         []ReceiptLine `json:"lines"`
	TotalCents    uint32        `json:"totalCents"`
}
