package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	config "silverbot-chat-api/configs"
	"silverbot-chat-api/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const visitor = "visitor-1"

type recordingNotifier struct {
	leads []CapturedLead
	err   error
}

func (n *recordingNotifier) NotifyLead(_ context.Context, capture CapturedLead) error {
	n.leads = append(n.leads, capture)
	return n.err
}

type chatFixture struct {
	chat     *ChatService
	catalog  *CatalogStore
	leads    *LeadStore
	sessions *MemorySessionStore
	notifier *recordingNotifier
	monitor  *MonitoringService
}

func newChatFixture(t *testing.T, flow string) *chatFixture {
	t.Helper()
	intents := loadTestIntents(t)
	db := newTestDB(t)

	f := &chatFixture{
		catalog:  NewCatalogStore(db),
		leads:    NewLeadStore(db),
		sessions: NewMemorySessionStore(time.Hour),
		notifier: &recordingNotifier{},
		monitor:  NewMonitoringService(),
	}
	f.chat = NewChatService(ChatDependencies{
		Classifier:    NewIntentClassifier(intents),
		Queries:       NewQueryBuilder(intents),
		Catalog:       f.catalog,
		Leads:         f.leads,
		Sessions:      f.sessions,
		Notifier:      f.notifier,
		Recorder:      f.monitor,
		InquiryFlow:   flow,
		ProductCutoff: intents.ProductCutoff(),
	})
	return f
}

func (f *chatFixture) send(t *testing.T, text string) string {
	t.Helper()
	reply, err := f.chat.HandleMessage(context.Background(), visitor, text)
	require.NoError(t, err)
	return reply.Reply
}

func (f *chatFixture) session(t *testing.T) *models.Session {
	t.Helper()
	s, err := f.sessions.Load(context.Background(), visitor)
	require.NoError(t, err)
	return s
}

func (f *chatFixture) counts(t *testing.T) (leads, quotations int64) {
	t.Helper()
	ctx := context.Background()
	leads, err := f.leads.CountLeads(ctx)
	require.NoError(t, err)
	quotations, err = f.leads.CountQuotationRequests(ctx)
	require.NoError(t, err)
	return leads, quotations
}

// listedItems は "- name (price)" 行の商品名を返す
func listedItems(reply string) []string {
	var names []string
	for _, line := range strings.Split(reply, "<br>") {
		if !strings.HasPrefix(line, "- ") {
			continue
		}
		line = strings.TrimPrefix(line, "- ")
		if i := strings.LastIndex(line, " ("); i >= 0 {
			line = line[:i]
		}
		names = append(names, line)
	}
	return names
}

func TestChatGreeting(t *testing.T) {
	f := newChatFixture(t, config.InquiryFlowExtended)
	assert.Equal(t, replyGreeting, f.send(t, "Hello"))
	assert.Equal(t, 1, f.monitor.IntentCounts()[models.IntentGreeting])
}

func TestChatEmptyMessage(t *testing.T) {
	f := newChatFixture(t, config.InquiryFlowExtended)
	assert.Equal(t, replyDefault, f.send(t, "   "))
	assert.Zero(t, f.sessions.Len())
}

func TestChatPriceFilterCapsAtFive(t *testing.T) {
	f := newChatFixture(t, config.InquiryFlowExtended)
	prices := map[string]float64{}
	for i, p := range []float64{300, 600, 900, 1200, 1500, 1800, 2000, 2500} {
		name := "Item " + string(rune('A'+i))
		prices[name] = p
		seedProducts(t, f.catalog, &models.Product{Name: name, Price: price(p)})
	}
	seedProducts(t, f.catalog, &models.Product{Name: "Unpriced Item"})

	reply := f.send(t, "show me something under 2000")
	items := listedItems(reply)
	assert.Len(t, items, 5)
	for _, name := range items {
		p, ok := prices[name]
		require.True(t, ok, name)
		assert.LessOrEqual(t, p, 2000.0)
	}
	assert.Contains(t, reply, "Items under ₹2000")
}

func TestChatRingsUnder1000(t *testing.T) {
	f := newChatFixture(t, config.InquiryFlowExtended)
	seedProducts(t, f.catalog,
		&models.Product{Name: "Classic Ring", Price: price(800), Category: "Rings"},
		&models.Product{Name: "Statement Ring", Price: price(1500), Category: "Rings"},
		&models.Product{Name: "Rope Chain", Price: price(700), Category: "Chains"},
	)

	reply := f.send(t, "rings under 1000")
	assert.Equal(t, []string{"Classic Ring"}, listedItems(reply))
	assert.Contains(t, reply, "₹800")
	assert.Equal(t, "Classic Ring", f.session(t).ChatState.ProductInterest)
}

func TestChatPriceFilterEdgeCases(t *testing.T) {
	f := newChatFixture(t, config.InquiryFlowExtended)
	seedProducts(t, f.catalog, &models.Product{Name: "Rope Chain", Price: price(1800), Category: "Chains"})

	assert.Equal(t, replyDefault, f.send(t, "anything under budget?"))
	assert.Equal(t, "❌ No items found under ₹500.", f.send(t, "under 500"))

	// カテゴリに該当がなければ価格だけで探す
	reply := f.send(t, "rings under 2k")
	assert.Equal(t, []string{"Rope Chain"}, listedItems(reply))
}

func TestChatPriceFilterRejectsHugeBudget(t *testing.T) {
	f := newChatFixture(t, config.InquiryFlowExtended)
	seedProducts(t, f.catalog, &models.Product{Name: "Rope Chain", Price: price(1800)})

	assert.Equal(t, replyDefault, f.send(t, "under 99999999999999999999999"))
}

func TestChatNonASCIIProductNames(t *testing.T) {
	f := newChatFixture(t, config.InquiryFlowExtended)
	adel := &models.Product{Name: "Ädel Ring", Price: price(1500)}
	seedProducts(t, f.catalog, adel)

	assert.Contains(t, f.send(t, "add ädel ring"), "Ädel Ring added to your cart")
	assert.Equal(t, []string{"Ädel Ring"}, f.session(t).Cart)

	// 商品名のタイプミスでも見つかる
	assert.Contains(t, f.send(t, "ädel rinng"), "💍 Ädel Ring (₹1500)")

	f.send(t, "I'm interested")
	f.send(t, "Asha")
	f.send(t, "9876543210")
	assert.Equal(t, replyCaptured, f.send(t, "asha@example.com"))

	rows, err := f.leads.ListQuotationRequests(context.Background(), 10, 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.NotNil(t, rows[0].ProductID)
	assert.Equal(t, adel.ID, *rows[0].ProductID)
}

func TestChatContactValidationIsIdempotent(t *testing.T) {
	f := newChatFixture(t, config.InquiryFlowExtended)

	assert.Equal(t, replyAskName, f.send(t, "I'm interested"))
	assert.Equal(t, replyAskContact, f.send(t, "Asha"))

	for _, bad := range []string{"call me maybe", "98765", "+91 98765 43210", "best selling items"} {
		assert.Equal(t, replyBadContact, f.send(t, bad))
		state := f.session(t).ChatState
		assert.Equal(t, models.AwaitingContact, state.Awaiting)
		assert.Empty(t, state.Contact)
	}

	leads, quotations := f.counts(t)
	assert.Zero(t, leads)
	assert.Zero(t, quotations)
}

func TestChatFullInquiryFlow(t *testing.T) {
	f := newChatFixture(t, config.InquiryFlowExtended)
	ring := &models.Product{Name: "Band Ring", Price: price(900), Category: "Rings"}
	seedProducts(t, f.catalog, ring)

	assert.Contains(t, f.send(t, "add band ring"), "Band Ring added to your cart")
	assert.Equal(t, replyAskName, f.send(t, "I'm interested"))
	assert.Equal(t, "Band Ring", f.session(t).ChatState.ProductInterest)

	assert.Equal(t, replyAskContact, f.send(t, "Asha Verma"))
	assert.Equal(t, replyAskEmail, f.send(t, "9876543210"))
	assert.Equal(t, replyBadEmail, f.send(t, "asha at example"))
	assert.Equal(t, models.AwaitingEmail, f.session(t).ChatState.Awaiting)
	assert.Equal(t, replyCaptured, f.send(t, "asha@example.com"))

	session := f.session(t)
	assert.True(t, session.ChatState.IsEmpty())
	assert.Equal(t, []string{"Band Ring"}, session.Cart)

	leads, quotations := f.counts(t)
	assert.Equal(t, int64(1), leads)
	assert.Equal(t, int64(1), quotations)

	rows, err := f.leads.ListQuotationRequests(context.Background(), 10, 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Asha Verma", rows[0].CustomerName)
	assert.Equal(t, "9876543210", rows[0].Contact)
	assert.Equal(t, 1, rows[0].Quantity)
	require.NotNil(t, rows[0].ProductID)
	assert.Equal(t, ring.ID, *rows[0].ProductID)

	leadRows, err := f.leads.ListLeads(context.Background(), 10, 0)
	require.NoError(t, err)
	require.Len(t, leadRows, 1)
	assert.Equal(t, "asha@example.com", *leadRows[0].Email)

	require.Len(t, f.notifier.leads, 1)
	assert.Equal(t, "Band Ring", f.notifier.leads[0].Interest)
	assert.Equal(t, ring.ID, f.notifier.leads[0].Product.ID)
}

func TestChatShortInquiryFlow(t *testing.T) {
	f := newChatFixture(t, config.InquiryFlowShort)

	assert.Equal(t, replyAskName, f.send(t, "please call me"))
	assert.Equal(t, models.DefaultProductInterest, f.session(t).ChatState.ProductInterest)
	assert.Equal(t, replyAskContact, f.send(t, "Ravi"))
	assert.Equal(t, replyCaptured, f.send(t, "9123456789"))

	assert.True(t, f.session(t).ChatState.IsEmpty())
	leads, quotations := f.counts(t)
	assert.Zero(t, leads)
	assert.Equal(t, int64(1), quotations)

	rows, err := f.leads.ListQuotationRequests(context.Background(), 10, 0)
	require.NoError(t, err)
	assert.Nil(t, rows[0].ProductID)
}

func TestChatNotifierFailureDoesNotFailCapture(t *testing.T) {
	f := newChatFixture(t, config.InquiryFlowShort)
	f.notifier.err = errors.New("smtp down")

	f.send(t, "I'm interested")
	f.send(t, "Ravi")
	assert.Equal(t, replyCaptured, f.send(t, "9123456789"))
}

func TestChatResetIsAbsolute(t *testing.T) {
	f := newChatFixture(t, config.InquiryFlowExtended)
	seedProducts(t, f.catalog, &models.Product{Name: "Band Ring", Price: price(900)})

	f.send(t, "add band ring")
	f.send(t, "I'm interested")
	f.send(t, "Asha")
	require.Equal(t, models.AwaitingContact, f.session(t).ChatState.Awaiting)

	// 入力途中でもリセットが優先される
	assert.Equal(t, replyReset, f.send(t, " BYE "))
	session := f.session(t)
	assert.Empty(t, session.Cart)
	assert.True(t, session.ChatState.IsEmpty())

	assert.Equal(t, replyCartEmpty, f.send(t, "what is my cart"))
	assert.Equal(t, replyAskName, f.send(t, "I'm interested"))
	state := f.session(t).ChatState
	assert.Equal(t, models.AwaitingName, state.Awaiting)
	assert.Equal(t, models.DefaultProductInterest, state.ProductInterest)

	for _, cmd := range []string{"end", "reset", "restart"} {
		assert.Equal(t, replyReset, f.send(t, cmd))
	}
}

func TestChatCart(t *testing.T) {
	f := newChatFixture(t, config.InquiryFlowExtended)
	seedProducts(t, f.catalog,
		&models.Product{Name: "Jhumka Earrings", Price: price(999), Category: "Earrings"},
		&models.Product{Name: "Classic Kada", Price: price(1899), Category: "Bangles"},
	)

	reply := f.send(t, "add silver ring")
	assert.Equal(t, "❌ Couldn’t find silver ring in catalog.", reply)
	assert.Empty(t, f.session(t).Cart)

	assert.Equal(t, replyAddWhat, f.send(t, "add"))

	f.send(t, "add jhumka earring")
	f.send(t, "please add Jhumka Earrings to cart")
	assert.Equal(t, []string{"Jhumka Earrings", "Jhumka Earrings"}, f.session(t).Cart)

	assert.Equal(t, "🛒 Your cart: Jhumka Earrings, Jhumka Earrings", f.send(t, "show cart"))
}

func TestChatBestSellersFallback(t *testing.T) {
	f := newChatFixture(t, config.InquiryFlowExtended)
	for i, p := range []float64{700, 100, 600, 200, 500, 300, 400} {
		seedProducts(t, f.catalog, &models.Product{Name: "Item " + string(rune('A'+i)), Price: price(p)})
	}
	seedProducts(t, f.catalog, &models.Product{Name: "Unpriced"})

	reply := f.send(t, "best selling items")
	assert.True(t, strings.HasPrefix(reply, "🤔 Not enough sales data yet."))
	assert.Equal(t, []string{"Item B", "Item D", "Item F", "Item G", "Item E"}, listedItems(reply))
}

func TestChatBestSellersFromRequests(t *testing.T) {
	f := newChatFixture(t, config.InquiryFlowExtended)
	ring := &models.Product{Name: "Band Ring", Price: price(900)}
	chain := &models.Product{Name: "Rope Chain", Price: price(1800)}
	seedProducts(t, f.catalog, ring, chain)
	ctx := context.Background()
	for _, id := range []string{chain.ID, chain.ID, ring.ID} {
		id := id
		require.NoError(t, f.leads.CreateQuotationRequest(ctx, &models.QuotationRequest{
			CustomerName: "x", Contact: "9999999", ProductID: &id, Quantity: 1,
		}))
	}

	reply := f.send(t, "what is popular")
	assert.True(t, strings.HasPrefix(reply, "🔥 Our best selling items:"))
	assert.Equal(t, []string{"Rope Chain", "Band Ring"}, listedItems(reply))
}

func TestChatBestSellersEmptyCatalog(t *testing.T) {
	f := newChatFixture(t, config.InquiryFlowExtended)
	assert.Equal(t, replyNoBestSeller, f.send(t, "best selling items"))
}

func TestChatBulkOrder(t *testing.T) {
	f := newChatFixture(t, config.InquiryFlowExtended)
	seedProducts(t, f.catalog,
		&models.Product{Name: "Band Ring", Price: price(900), Category: "Rings"},
		&models.Product{Name: "Temple Necklace", Category: "Necklaces"},
	)

	assert.Contains(t, f.send(t, "price for 20 rings"), "20 x Band Ring = ₹18000")
	assert.Equal(t, "Band Ring", f.session(t).ChatState.ProductInterest)
	assert.Contains(t, f.send(t, "cost of 3 necklaces"), "3 x Temple Necklace = Price NA")
	assert.Equal(t, replyBulkHelp, f.send(t, "price for rings"))
	assert.Equal(t, replyBulkHelp, f.send(t, "bulk order of 50"))
	assert.Equal(t, replyBulkNotFound, f.send(t, "price for 5 anklets"))
}

func TestChatBusinessInfo(t *testing.T) {
	f := newChatFixture(t, config.InquiryFlowExtended)
	assert.Contains(t, f.send(t, "where are you located"), "Our store is located")
	assert.Contains(t, f.send(t, "do you sell gold"), "sterling silver")
	assert.Contains(t, f.send(t, "can i customize a ring"), "customization")
	assert.Contains(t, f.send(t, "send catalog"), "catalog")
}

func TestChatFallbackSearch(t *testing.T) {
	f := newChatFixture(t, config.InquiryFlowExtended)
	seedProducts(t, f.catalog,
		&models.Product{Name: "Toe Ring", Price: price(300)},
		&models.Product{Name: "Temple Necklace", Description: strPtr("Antique finish"), Image: strPtr("https://cdn.example.com/temple.jpg")},
		&models.Product{Name: "Rope Chain", Price: price(1800), Category: "Chains"},
	)

	// カテゴリ完全一致
	assert.Equal(t, []string{"Rope Chain"}, listedItems(f.send(t, "chains")))
	assert.Equal(t, "Rope Chain", f.session(t).ChatState.ProductInterest)

	// カテゴリ未設定の商品は名前の部分一致で見つかる
	assert.Equal(t, []string{"Toe Ring"}, listedItems(f.send(t, "rings")))

	// 商品名の曖昧一致
	reply, err := f.chat.HandleMessage(context.Background(), visitor, "templ necklase")
	require.NoError(t, err)
	assert.Contains(t, reply.Reply, "Temple Necklace (Price NA)")
	assert.Contains(t, reply.Reply, "Antique finish")
	assert.Equal(t, "https://cdn.example.com/temple.jpg", reply.Img)
	assert.Equal(t, "Temple Necklace", f.session(t).ChatState.ProductInterest)

	assert.Equal(t, replyNoMatch, f.send(t, "xyz123"))
}

type failingLeads struct{}

func (failingLeads) CreateQuotationRequest(context.Context, *models.QuotationRequest) error {
	return errors.New("disk full")
}

func (failingLeads) CreateLeadWithQuotation(context.Context, *models.Lead, *models.QuotationRequest) error {
	return errors.New("disk full")
}

func TestChatStoreFailurePropagates(t *testing.T) {
	intents := loadTestIntents(t)
	sessions := NewMemorySessionStore(time.Hour)
	chat := NewChatService(ChatDependencies{
		Classifier:  NewIntentClassifier(intents),
		Queries:     NewQueryBuilder(intents),
		Catalog:     NewCatalogStore(newTestDB(t)),
		Leads:       failingLeads{},
		Sessions:    sessions,
		InquiryFlow: config.InquiryFlowExtended,
	})
	ctx := context.Background()

	for _, msg := range []string{"I'm interested", "Asha", "9876543210"} {
		_, err := chat.HandleMessage(ctx, visitor, msg)
		require.NoError(t, err)
	}
	_, err := chat.HandleMessage(ctx, visitor, "asha@example.com")
	require.Error(t, err)

	// 失敗したターンの状態は保存されない
	session, err := sessions.Load(ctx, visitor)
	require.NoError(t, err)
	assert.Equal(t, models.AwaitingEmail, session.ChatState.Awaiting)
	assert.Empty(t, session.ChatState.Email)
}

func TestAddTarget(t *testing.T) {
	testCases := []struct {
		msg    string
		target string
		isAdd  bool
	}{
		{"add silver ring", "silver ring", true},
		{"please add rope chain to my cart", "rope chain", true},
		{"add", "", true},
		{"show cart", "", false},
		{"address please", "", false},
	}
	for _, tc := range testCases {
		target, ok := addTarget(tc.msg)
		assert.Equal(t, tc.isAdd, ok, tc.msg)
		assert.Equal(t, tc.target, target, tc.msg)
	}
}

func TestFormatPrice(t *testing.T) {
	assert.Equal(t, "Price NA", formatPrice(nil))
	assert.Equal(t, "₹800", formatPrice(price(800)))
	assert.Equal(t, "₹799.50", formatPrice(price(799.5)))
}
