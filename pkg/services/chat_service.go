package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"regexp"
	"strings"

	config "silverbot-chat-api/configs"
	"silverbot-chat-api/pkg/models"
)

const (
	replyDefault      = "❌ Sorry, I didn’t understand. Try: rings, necklaces, bangles, earrings, anklets, chains."
	replyGreeting     = "Hi 👋 I’m SilverBot! Ask me about rings, necklaces, bangles, earrings, anklets or chains, a budget like 'under 2000', or say 'best selling items'."
	replyReset        = "🔄 Conversation ended. You can start a new chat now."
	replyAskName      = "🙋 Sure! Please tell me your name."
	replyAskContact   = "📞 Great! Please share your contact number."
	replyAskEmail     = "📧 Thanks! Please share your email address."
	replyBadContact   = "⚠️ Please enter a valid phone number (digits only)."
	replyBadEmail     = "⚠️ Please enter a valid email address."
	replyCaptured     = "✅ Thank you! Our team will contact you soon."
	replyNoMatch      = "❌ I couldn’t find a match. Try a category like 'rings', 'bangles', 'chains', or say 'best selling items' / 'under 2000'."
	replyBulkHelp     = "📦 For bulk orders tell me the quantity and the item, e.g. 'price for 20 rings'."
	replyBulkNotFound = "❌ Couldn’t find the product for bulk order."
	replyCartEmpty    = "🛒 Your cart is empty."
	replyAddWhat      = "🛒 Tell me what to add, e.g. 'add silver ring'."
	replyNoBestSeller = "🤔 Not enough data yet to show best sellers."
	replyInquiryHint  = "💬 Type 'I'm interested' and our team will call you back."
	replyListFooter   = "<br>💬 Type 'add' + product name to add to cart, or 'I'm interested' to request a callback."

	bestSellerLimit = 5
	budgetLimit     = 5
	searchLimit     = 5

	leadMessage = "Lead generated from chatbot"
)

var (
	phonePattern = regexp.MustCompile(`^\d{7,15}$`)
	emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

// resetCommands は状態を問わず会話をリセットする（完全一致）
var resetCommands = map[string]bool{
	"end":     true,
	"reset":   true,
	"restart": true,
	"bye":     true,
}

// businessInfoReply は店舗情報のキーワード表。上から順に評価する。
type businessInfoReply struct {
	keywords []string
	reply    string
}

var businessInfoReplies = []businessInfoReply{
	{
		keywords: []string{"store", "located", "location", "address", "where"},
		reply:    "🏬 Our store is located in Jaipur, Rajasthan. We also deliver across India 🚚",
	},
	{
		keywords: []string{"catalog", "catalogue"},
		reply:    "📖 Browse our catalog right here: ask for rings, necklaces, bangles, earrings, anklets or chains.",
	},
	{
		keywords: []string{"customiz", "customis", "engrav", "personali"},
		reply:    "🎨 Yes! We offer customization and engraving on most designs. Type 'I'm interested' and our team will call you.",
	},
	{
		keywords: []string{"gold", "material", "purity", "sterling", "925", "92.5"},
		reply:    "✨ All our jewelry is 92.5 sterling silver. We don’t sell gold.",
	},
}

const replyBusinessDefault = "ℹ️ We are a silver jewelry store. Ask about our location, catalog, customization or material."

// Catalog はチャットから参照する商品カタログ（読み取り専用）
type Catalog interface {
	WithinBudget(ctx context.Context, maxPrice float64, limit int, scope ProductScope) ([]*models.Product, error)
	First(ctx context.Context, scope ProductScope) (*models.Product, error)
	ListByPrice(ctx context.Context, scope ProductScope, limit int) ([]*models.Product, error)
	CheapestPriced(ctx context.Context, limit int) ([]*models.Product, error)
	TopRequested(ctx context.Context, limit int) ([]*models.Product, error)
	Names(ctx context.Context) ([]string, error)
	FindByName(ctx context.Context, name string) (*models.Product, error)
}

// LeadRecorder はリード獲得フローの書き込み先
type LeadRecorder interface {
	CreateQuotationRequest(ctx context.Context, qr *models.QuotationRequest) error
	CreateLeadWithQuotation(ctx context.Context, lead *models.Lead, qr *models.QuotationRequest) error
}

// IntentRecorder はインテントごとの件数を集計する（監視用）
type IntentRecorder interface {
	RecordIntent(intent models.Intent)
}

// ChatDependencies は ChatService の依存関係
type ChatDependencies struct {
	Classifier    *IntentClassifier
	Queries       *QueryBuilder
	Catalog       Catalog
	Leads         LeadRecorder
	Sessions      SessionStore
	Notifier      LeadNotifier   // 任意
	Recorder      IntentRecorder // 任意
	InquiryFlow   string
	ProductCutoff float64
}

// ChatService はメッセージを分類し、応答を組み立て、セッションを保存します。
type ChatService struct {
	classifier    *IntentClassifier
	queries       *QueryBuilder
	catalog       Catalog
	leads         LeadRecorder
	sessions      SessionStore
	notifier      LeadNotifier
	recorder      IntentRecorder
	shortFlow     bool
	productCutoff float64
}

// NewChatService は新しいChatServiceを生成します。
func NewChatService(deps ChatDependencies) *ChatService {
	notifier := deps.Notifier
	if notifier == nil {
		notifier = NoopLeadNotifier{}
	}
	cutoff := deps.ProductCutoff
	if cutoff <= 0 {
		cutoff = 0.6
	}
	return &ChatService{
		classifier:    deps.Classifier,
		queries:       deps.Queries,
		catalog:       deps.Catalog,
		leads:         deps.Leads,
		sessions:      deps.Sessions,
		notifier:      notifier,
		recorder:      deps.Recorder,
		shortFlow:     deps.InquiryFlow == config.InquiryFlowShort,
		productCutoff: cutoff,
	}
}

// turn は処理中の1リクエスト
type turn struct {
	raw     string // 前後の空白のみ除去（大文字小文字はそのまま）
	msg     string // 正規化済み
	session *models.Session
	img     string
}

// HandleMessage は sessionID のメッセージを1件処理して返信を返します。
// セッションはターン全体が成功したときだけ保存されます。
func (s *ChatService) HandleMessage(ctx context.Context, sessionID, text string) (*models.ChatReply, error) {
	session, err := s.sessions.Load(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	t := &turn{
		raw:     strings.TrimSpace(text),
		msg:     NormalizeText(text),
		session: session,
	}

	if t.msg == "" {
		return &models.ChatReply{Reply: replyDefault}, nil
	}

	var reply string
	if resetCommands[t.msg] {
		// リセットは他のすべての処理より優先される
		session.Reset()
		reply = replyReset
		log.Printf("🔄 [chat] session=%s reset", shortID(sessionID))
	} else {
		intent, rule := s.classifier.Explain(t.msg, session.ChatState.Awaiting)
		log.Printf("💬 [chat] session=%s intent=%s rule=%s awaiting=%q", shortID(sessionID), intent, rule, session.ChatState.Awaiting)
		if s.recorder != nil {
			s.recorder.RecordIntent(intent)
		}

		reply, err = s.dispatch(ctx, intent, t)
		if err != nil {
			return nil, err
		}
	}

	if err := s.sessions.Save(ctx, sessionID, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	return &models.ChatReply{Reply: reply, Img: t.img}, nil
}

func (s *ChatService) dispatch(ctx context.Context, intent models.Intent, t *turn) (string, error) {
	switch intent {
	case models.IntentGreeting:
		return replyGreeting, nil
	case models.IntentPriceFilter:
		return s.handlePriceFilter(ctx, t)
	case models.IntentBulkOrders:
		return s.handleBulkOrder(ctx, t)
	case models.IntentBestSellers:
		return s.handleBestSellers(ctx, t)
	case models.IntentCartManagement:
		return s.handleCart(ctx, t)
	case models.IntentInquiry:
		return s.handleInquiry(ctx, t)
	case models.IntentBusinessInfo:
		return businessInfo(t.msg), nil
	default:
		return s.handleSearch(ctx, t)
	}
}

func (s *ChatService) handlePriceFilter(ctx context.Context, t *turn) (string, error) {
	limit, ok := PriceLimit(t.msg)
	if !ok {
		return replyDefault, nil
	}

	header := fmt.Sprintf("💎 Items under ₹%d:", limit)
	var products []*models.Product
	if category, ok := s.queries.ResolveCategory(t.msg); ok {
		narrowed, err := s.catalog.WithinBudget(ctx, float64(limit), budgetLimit, CategoryEquals(category))
		if err != nil {
			return "", err
		}
		if len(narrowed) > 0 {
			products = narrowed
			header = fmt.Sprintf("💎 %s under ₹%d:", category, limit)
		}
	}
	if products == nil {
		all, err := s.catalog.WithinBudget(ctx, float64(limit), budgetLimit, nil)
		if err != nil {
			return "", err
		}
		products = all
	}

	if len(products) == 0 {
		return fmt.Sprintf("❌ No items found under ₹%d.", limit), nil
	}
	t.remember(products[0])
	return productList(header, products), nil
}

func (s *ChatService) handleBulkOrder(ctx context.Context, t *turn) (string, error) {
	qty, ok := FirstInteger(t.msg)
	scope := s.queries.CategoryQuery(t.msg)
	if !ok || qty <= 0 || scope == nil {
		return replyBulkHelp, nil
	}

	product, err := s.catalog.First(ctx, scope)
	if errors.Is(err, ErrNotFound) {
		return replyBulkNotFound, nil
	}
	if err != nil {
		return "", err
	}
	t.remember(product)

	total := "Price NA"
	if product.HasPrice() {
		total = "₹" + formatAmount(float64(qty)*(*product.Price))
	}
	return fmt.Sprintf("📦 Bulk order quotation:<br>%d x %s = %s<br>%s", qty, product.Name, total, replyInquiryHint), nil
}

func (s *ChatService) handleBestSellers(ctx context.Context, t *turn) (string, error) {
	top, err := s.catalog.TopRequested(ctx, bestSellerLimit)
	if err != nil {
		return "", err
	}
	if len(top) > 0 {
		t.remember(top[0])
		return productList("🔥 Our best selling items:", top), nil
	}

	cheapest, err := s.catalog.CheapestPriced(ctx, bestSellerLimit)
	if err != nil {
		return "", err
	}
	if len(cheapest) == 0 {
		return replyNoBestSeller, nil
	}
	t.remember(cheapest[0])
	return productList("🤔 Not enough sales data yet. Here are some popular picks:", cheapest), nil
}

func (s *ChatService) handleCart(ctx context.Context, t *turn) (string, error) {
	item, isAdd := addTarget(t.msg)
	if !isAdd {
		if len(t.session.Cart) == 0 {
			return replyCartEmpty, nil
		}
		return "🛒 Your cart: " + strings.Join(t.session.Cart, ", "), nil
	}
	if item == "" {
		return replyAddWhat, nil
	}

	product, err := s.fuzzyProduct(ctx, item)
	if err != nil {
		return "", err
	}
	if product == nil {
		return fmt.Sprintf("❌ Couldn’t find %s in catalog.", item), nil
	}

	t.session.Cart = append(t.session.Cart, product.Name)
	t.remember(product)
	return fmt.Sprintf("✅ %s added to your cart!<br>%s", product.Name, replyInquiryHint), nil
}

func (s *ChatService) handleSearch(ctx context.Context, t *turn) (string, error) {
	for _, scope := range []ProductScope{s.queries.CategoryQuery(t.msg), s.queries.BroadCategoryQuery(t.msg)} {
		if scope == nil {
			continue
		}
		products, err := s.catalog.ListByPrice(ctx, scope, searchLimit)
		if err != nil {
			return "", err
		}
		if len(products) > 0 {
			t.remember(products[0])
			return productList("🔎 Matching items:", products), nil
		}
	}

	product, err := s.fuzzyProduct(ctx, t.msg)
	if err != nil {
		return "", err
	}
	if product == nil {
		return replyNoMatch, nil
	}
	t.remember(product)

	desc := ""
	if product.Description != nil && *product.Description != "" {
		desc = "<br>" + *product.Description
	}
	return fmt.Sprintf("💍 %s (%s)%s<br>💬 Type 'add %s' to add it to your cart, or 'I'm interested' for a callback.",
		product.Name, formatPrice(product.Price), desc, strings.ToLower(product.Name)), nil
}

// fuzzyProduct は商品名に曖昧一致する商品を返す。見つからなければ nil。
func (s *ChatService) fuzzyProduct(ctx context.Context, text string) (*models.Product, error) {
	names, err := s.catalog.Names(ctx)
	if err != nil {
		return nil, err
	}
	lowered := make([]string, len(names))
	for i, n := range names {
		lowered[i] = strings.ToLower(n)
	}
	match, ok := BestMatch(text, lowered, s.productCutoff)
	if !ok {
		return nil, nil
	}
	product, err := s.catalog.FindByName(ctx, match)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return product, err
}

// handleInquiry はリード獲得のステートマシン
func (s *ChatService) handleInquiry(ctx context.Context, t *turn) (string, error) {
	state := &t.session.ChatState

	switch state.Awaiting {
	case models.AwaitingName:
		state.CustomerName = t.raw
		state.Awaiting = models.AwaitingContact
		return replyAskContact, nil

	case models.AwaitingContact:
		if !phonePattern.MatchString(t.raw) {
			return replyBadContact, nil
		}
		if !s.shortFlow {
			state.Contact = t.raw
			state.Awaiting = models.AwaitingEmail
			return replyAskEmail, nil
		}
		state.Contact = t.raw
		return s.completeCapture(ctx, t)

	case models.AwaitingEmail:
		if !emailPattern.MatchString(t.raw) {
			return replyBadEmail, nil
		}
		state.Email = t.raw
		return s.completeCapture(ctx, t)

	default:
		interest := state.ProductInterest
		if interest == "" {
			if last, ok := t.session.LastCartItem(); ok {
				interest = last
			} else {
				interest = models.DefaultProductInterest
			}
		}
		state.ProductInterest = interest
		state.Awaiting = models.AwaitingName
		return replyAskName, nil
	}
}

// completeCapture は記録を書き込み、成功したときだけ状態をクリアする
func (s *ChatService) completeCapture(ctx context.Context, t *turn) (string, error) {
	state := t.session.ChatState

	product, err := s.interestProduct(ctx, state.ProductInterest)
	if err != nil {
		return "", err
	}

	message := leadMessage
	qr := &models.QuotationRequest{
		CustomerName: state.CustomerName,
		Contact:      state.Contact,
		Quantity:     1,
		Message:      &message,
	}
	if product != nil {
		qr.ProductID = &product.ID
	}

	if s.shortFlow {
		err = s.leads.CreateQuotationRequest(ctx, qr)
	} else {
		inquiry := fmt.Sprintf("Interested in %s", state.ProductInterest)
		lead := &models.Lead{
			Name:    state.CustomerName,
			Email:   &state.Email,
			Phone:   &state.Contact,
			Message: &inquiry,
		}
		err = s.leads.CreateLeadWithQuotation(ctx, lead, qr)
	}
	if err != nil {
		return "", fmt.Errorf("failed to record lead: %w", err)
	}

	log.Printf("✅ [chat] lead captured: name=%q interest=%q", state.CustomerName, state.ProductInterest)
	if err := s.notifier.NotifyLead(ctx, CapturedLead{
		CustomerName: state.CustomerName,
		Contact:      state.Contact,
		Email:        state.Email,
		Interest:     state.ProductInterest,
		Product:      product,
	}); err != nil {
		log.Printf("⚠️ [chat] lead notification failed: %v", err)
	}

	t.session.ChatState = models.ChatState{}
	return replyCaptured, nil
}

func (s *ChatService) interestProduct(ctx context.Context, interest string) (*models.Product, error) {
	if interest == "" || interest == models.DefaultProductInterest {
		return nil, nil
	}
	// product_interest は通常は商品名そのもの
	product, err := s.catalog.FindByName(ctx, interest)
	if errors.Is(err, ErrNotFound) {
		product, err = s.catalog.First(ctx, NameContains(interest))
	}
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return product, err
}

// remember は直近に解決した商品を記録し、画像があれば返信に添付する
func (t *turn) remember(p *models.Product) {
	t.session.ChatState.ProductInterest = p.Name
	if t.img == "" {
		t.img = p.ImageURL()
	}
}

// addTarget は "add <x>" コマンドから商品部分を取り出す
func addTarget(msg string) (string, bool) {
	var rest string
	switch {
	case msg == "add":
		return "", true
	case strings.HasPrefix(msg, "add "):
		rest = msg[len("add "):]
	default:
		i := strings.Index(msg, " add ")
		if i < 0 {
			return "", false
		}
		rest = msg[i+len(" add "):]
	}
	for _, suffix := range []string{" to my cart", " to cart", " in my cart", " in cart"} {
		rest = strings.TrimSuffix(rest, suffix)
	}
	return strings.TrimSpace(rest), true
}

func businessInfo(msg string) string {
	for _, entry := range businessInfoReplies {
		for _, kw := range entry.keywords {
			if strings.Contains(msg, kw) {
				return entry.reply
			}
		}
	}
	return replyBusinessDefault
}

func productList(header string, products []*models.Product) string {
	var sb strings.Builder
	sb.WriteString(header)
	sb.WriteString("<br>")
	for _, p := range products {
		sb.WriteString(fmt.Sprintf("- %s (%s)<br>", p.Name, formatPrice(p.Price)))
	}
	sb.WriteString(replyListFooter)
	return sb.String()
}

func formatPrice(price *float64) string {
	if price == nil {
		return "Price NA"
	}
	return "₹" + formatAmount(*price)
}

func formatAmount(v float64) string {
	if v == math.Trunc(v) {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%.2f", v)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
