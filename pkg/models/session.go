package models

// Intent is the label produced by the classifier.
type Intent string

const (
	IntentGreeting       Intent = "greeting"
	IntentPriceFilter    Intent = "price_filter"
	IntentBulkOrders     Intent = "bulk_orders"
	IntentBestSellers    Intent = "best_sellers"
	IntentCartManagement Intent = "cart_management"
	IntentInquiry        Intent = "inquiry"
	IntentBusinessInfo   Intent = "business_info"
	IntentFallback       Intent = "fallback"
)

// Awaiting is the lead-capture step the session is waiting on.
type Awaiting string

const (
	AwaitingNone    Awaiting = ""
	AwaitingName    Awaiting = "name"
	AwaitingContact Awaiting = "contact"
	AwaitingEmail   Awaiting = "email"
)

// InCapture reports whether a capture dialogue is in progress.
func (a Awaiting) InCapture() bool {
	switch a {
	case AwaitingName, AwaitingContact, AwaitingEmail:
		return true
	}
	return false
}

// DefaultProductInterest is used when neither the state nor the cart names a product.
const DefaultProductInterest = "General"

// ChatState is the typed capture-progress record stored under "chat_state".
type ChatState struct {
	Awaiting        Awaiting `json:"awaiting,omitempty"`
	CustomerName    string   `json:"customer_name,omitempty"`
	Contact         string   `json:"contact,omitempty"`
	Email           string   `json:"email,omitempty"`
	ProductInterest string   `json:"product_interest,omitempty"`
}

// IsEmpty reports whether the state is in its cleared form.
func (s ChatState) IsEmpty() bool {
	return s == ChatState{}
}

// Session is the per-visitor document persisted by a SessionStore.
type Session struct {
	Cart      []string  `json:"cart"`
	ChatState ChatState `json:"chat_state"`
}

// NewSession returns an empty session.
func NewSession() *Session {
	return &Session{Cart: []string{}}
}

// Reset clears both the cart and the capture state.
func (s *Session) Reset() {
	s.Cart = []string{}
	s.ChatState = ChatState{}
}

// LastCartItem returns the most recently added product name.
func (s *Session) LastCartItem() (string, bool) {
	if len(s.Cart) == 0 {
		return "", false
	}
	return s.Cart[len(s.Cart)-1], true
}
