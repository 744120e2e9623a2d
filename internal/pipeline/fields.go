package pipeline

import (
	"strings"

	"github.com/rs/zerolog"

	"ddtft/internal/domain"
	"ddtft/internal/grammar"
	"ddtft/internal/layout"
	"ddtft/internal/locator"
)

// Field names used for provenance, overrides and diagnostics.
const (
	FieldDocumentType    = "document_type"
	FieldNumber          = "number"
	FieldDate            = "date"
	FieldClientCode      = "client_code"
	FieldClientName      = "client_name"
	FieldVatID           = "vat_id"
	FieldOrderReference  = "order_reference"
	FieldBillingAddress  = "billing_address"
	FieldDeliveryAddress = "delivery_address"
	FieldLineItems       = "line_items"
)

// RuleVatIDChecksum is the check carried by the checksum VAT-id strategy.
const RuleVatIDChecksum = "vat_id_checksum"

// run is the state of one extraction. It is never shared between goroutines.
type run struct {
	e        *Engine
	log      zerolog.Logger
	text     string
	lines    []string
	hints    [][]layout.Fragment
	fileName string

	headerRow    locator.HeaderRow
	hasHeaderRow bool
	anchored     locator.AnchoredLine
	hasAnchored  bool
	block        locator.ColumnBlock
	hasBlock     bool

	doc   *domain.Document
	diags []domain.Diagnostic
}

func (r *run) isInvoice() bool {
	return r.doc.Type == domain.DocumentTypeFT || r.doc.Type == domain.DocumentTypeNC
}

func (r *run) header() {
	r.headerRow, r.hasHeaderRow = locator.FindHeaderRow(r.lines)
	if r.isInvoice() {
		r.anchored, r.hasAnchored = r.e.locator.FindAnchoredLine(r.lines)
	}

	r.commitString(FieldNumber, r.numberChain(), true, &r.doc.Number)
	r.commitString(FieldDate, r.dateChain(), true, &r.doc.Date)
	r.commitString(FieldClientCode, r.clientCodeChain(), true, &r.doc.ClientCode)
	r.commitString(FieldVatID, r.vatIDChain(), r.isInvoice(), &r.doc.VatID)
	r.commitString(FieldOrderReference, Chain[string]{
		Field: FieldOrderReference,
		Key:   stringKey,
		Strategies: []Strategy[string]{
			Fixed("order_reference.labeled", 0.8, func() (string, bool) { return locator.OrderReference(r.text) }),
		},
	}, false, &r.doc.OrderReference)
}

func (r *run) numberChain() Chain[string] {
	headerRow := Fixed("number.header_row", 0.9, func() (string, bool) {
		return r.headerRow.Number, r.hasHeaderRow
	})
	anchored := Fixed("number.anchored_line", 0.95, func() (string, bool) {
		return r.anchored.Number, r.hasAnchored
	})
	labeled := Fixed("number.labeled", 0.8, func() (string, bool) { return locator.LabeledNumber(r.text) })
	fromFile := Fixed("number.file_name", 0.4, func() (string, bool) { return locator.NumberFromFileName(r.fileName) })

	c := Chain[string]{Field: FieldNumber, Key: stringKey}
	if r.isInvoice() {
		c.Strategies = []Strategy[string]{anchored, labeled, headerRow, fromFile}
	} else {
		c.Strategies = []Strategy[string]{headerRow, labeled, fromFile}
	}
	return c
}

func (r *run) dateChain() Chain[string] {
	headerRow := Fixed("date.header_row", 0.9, func() (string, bool) {
		if !r.hasHeaderRow {
			return "", false
		}
		return grammar.ParseDate(r.headerRow.Date)
	})
	anchored := Fixed("date.anchored_line", 0.95, func() (string, bool) {
		if !r.hasAnchored {
			return "", false
		}
		return grammar.ParseDate(r.anchored.Date)
	})
	labeled := Fixed("date.labeled", 0.8, func() (string, bool) { return locator.LabeledDate(r.text) })
	fromFile := Fixed("date.file_name", 0.4, func() (string, bool) { return locator.DateFromFileName(r.fileName) })

	c := Chain[string]{Field: FieldDate, Key: stringKey}
	if r.isInvoice() {
		c.Strategies = []Strategy[string]{anchored, labeled, headerRow, fromFile}
	} else {
		c.Strategies = []Strategy[string]{headerRow, labeled, fromFile}
	}
	return c
}

func (r *run) clientCodeChain() Chain[string] {
	headerRow := Fixed("client_code.header_row", 0.9, func() (string, bool) {
		if !r.hasHeaderRow || r.e.profile.IsExcludedClientCode(r.headerRow.ClientCode) {
			return "", false
		}
		return r.headerRow.ClientCode, true
	})
	anchored := Fixed("client_code.anchored_line", 0.95, func() (string, bool) {
		if !r.hasAnchored || r.e.profile.IsExcludedClientCode(r.anchored.ClientCode) {
			return "", false
		}
		return r.anchored.ClientCode, true
	})
	labeled := Fixed("client_code.labeled", 0.8, func() (string, bool) { return r.e.locator.LabeledClientCode(r.text) })
	fromFile := Fixed("client_code.file_name", 0.5, func() (string, bool) {
		return r.e.locator.ClientCodeFromFileName(r.fileName)
	})

	c := Chain[string]{Field: FieldClientCode, Key: stringKey}
	if r.isInvoice() {
		c.Strategies = []Strategy[string]{anchored, labeled, fromFile, headerRow}
	} else {
		c.Strategies = []Strategy[string]{headerRow, labeled, fromFile}
	}
	return c
}

func (r *run) vatIDChain() Chain[string] {
	anchored := Fixed("vat_id.anchored_line", 0.95, func() (string, bool) {
		return r.anchored.VatID, r.hasAnchored && r.anchored.VatID != ""
	})
	labeled := Fixed("vat_id.labeled", 0.85, func() (string, bool) { return r.e.locator.LabeledVatID(r.text) })
	bare := Fixed("vat_id.bare", 0.5, func() (string, bool) { return r.e.locator.BareVatID(r.text) })
	checksum := Strategy[string]{
		Name:  "vat_id.checksum",
		Rule:  RuleVatIDChecksum,
		Check: grammar.ValidVatID,
		Find: func() (string, float64, bool) {
			v, ok := r.e.locator.ChecksumVatID(r.text)
			return v, 0.9, ok
		},
	}

	c := Chain[string]{Field: FieldVatID, Key: stringKey}
	if r.isInvoice() {
		c.Strategies = []Strategy[string]{anchored, labeled, bare, checksum}
	} else {
		c.Strategies = []Strategy[string]{labeled, bare, checksum}
	}
	return c
}

// blockHeader picks the row the client block hangs from: the canonical header
// row, or for invoices the anchored line.
func (r *run) blockHeader() (locator.HeaderRow, bool) {
	if r.isInvoice() && r.hasAnchored {
		return locator.HeaderRow{Index: r.anchored.Index}, true
	}
	return r.headerRow, r.hasHeaderRow
}

func (r *run) addresses() {
	if h, ok := r.blockHeader(); ok {
		r.block, r.hasBlock = r.e.locator.HeaderColumns(r.lines, r.hints, h)
		r.diags = append(r.diags, r.block.Diagnostics...)
	}

	r.commitString(FieldClientName, r.clientNameChain(), true, &r.doc.ClientName)

	if r.hasBlock && r.block.Billing != nil {
		r.doc.BillingAddress = r.block.Billing
		r.doc.Provenance[FieldBillingAddress] = domain.FieldProvenance{
			Strategy:   "address.header_columns",
			Confidence: r.block.Billing.Confidence,
		}
	}

	out := r.deliveryChain().Run(r.log)
	r.doc.Overrides = append(r.doc.Overrides, out.Overrides...)
	if !out.Found {
		r.diags = append(r.diags, domain.Diagnostic{
			Kind:     domain.DiagnosticPatternNotFound,
			Field:    FieldDeliveryAddress,
			Strategy: "address.chain",
			Message:  "no delivery address found",
		})
		return
	}
	r.doc.DeliveryAddress = out.Value
	r.doc.Provenance[FieldDeliveryAddress] = out.Provenance
}

func (r *run) clientNameChain() Chain[string] {
	fromBlock := Strategy[string]{
		Name: "client_name.header_columns",
		Find: func() (string, float64, bool) {
			if !r.hasBlock || r.block.ClientName == "" {
				return "", 0, false
			}
			conf := 0.85
			if r.block.NameConfirmed {
				conf = 0.95
			}
			if r.isInvoice() {
				conf -= 0.15
			}
			return r.block.ClientName, conf, true
		},
	}
	shipTo := Fixed("client_name.ship_to", 0.85, func() (string, bool) {
		return r.e.locator.ShipToName(r.lines, r.hints)
	})
	attention := Fixed("client_name.attention_block", 0.75, func() (string, bool) {
		return r.e.locator.AttentionName(r.lines)
	})

	c := Chain[string]{Field: FieldClientName, Key: stringKey}
	if r.isInvoice() {
		c.Strategies = []Strategy[string]{shipTo, attention, fromBlock}
	} else {
		c.Strategies = []Strategy[string]{fromBlock, shipTo, attention}
	}
	return c
}

func (r *run) deliveryChain() Chain[*domain.AddressBlock] {
	found := func(a *domain.AddressBlock, ok bool) (*domain.AddressBlock, float64, bool) {
		if !ok || a == nil {
			return nil, 0, false
		}
		return a, a.Confidence, true
	}
	return Chain[*domain.AddressBlock]{
		Field: FieldDeliveryAddress,
		Key:   func(a *domain.AddressBlock) string { return a.String() },
		Strategies: []Strategy[*domain.AddressBlock]{
			{Name: "address.header_columns", Find: func() (*domain.AddressBlock, float64, bool) {
				return found(r.block.Delivery, r.hasBlock)
			}},
			{Name: "address.dual_column", Find: func() (*domain.AddressBlock, float64, bool) {
				return found(r.e.locator.DualColumnScan(r.lines, r.hints))
			}},
			{Name: "address.marker", Find: func() (*domain.AddressBlock, float64, bool) {
				return found(r.e.locator.MarkerAddress(r.lines))
			}},
			{Name: "address.billing_fallback", Find: func() (*domain.AddressBlock, float64, bool) {
				return found(r.billingFallback())
			}},
		},
	}
}

// billingFallback reuses a single-column billing block as the delivery
// address. It is always flagged low confidence.
func (r *run) billingFallback() (*domain.AddressBlock, bool) {
	if !r.hasBlock || r.block.Billing == nil {
		return nil, false
	}
	a := *r.block.Billing
	a.Method = domain.AddressMethodBillingFallback
	a.Confidence = domain.AddressConfidence[domain.AddressMethodBillingFallback]
	if !a.Complete() {
		a.Confidence /= 2
	}
	a.LowConfidence = true
	return &a, true
}

func (r *run) lineItems() {
	items, diags := r.e.items.Parse(r.lines)
	r.doc.LineItems = items
	r.diags = append(r.diags, diags...)
	if len(items) == 0 {
		r.diags = append(r.diags, domain.Diagnostic{
			Kind:     domain.DiagnosticPatternNotFound,
			Field:    FieldLineItems,
			Strategy: "lineitem.validated_total",
			Message:  "no product rows found",
		})
	}
}

func (r *run) reconcile() {
	t, diags := r.e.totals.Reconcile(r.doc.LineItems, r.lines)
	r.doc.Totals = t
	r.diags = append(r.diags, diags...)
}

// commitString runs a chain and stores its outcome. A required field that no
// strategy finds is reported as PatternNotFound.
func (r *run) commitString(field string, c Chain[string], required bool, dst *string) {
	out := c.Run(r.log)
	r.doc.Overrides = append(r.doc.Overrides, out.Overrides...)
	if !out.Found {
		if required {
			names := make([]string, 0, len(c.Strategies))
			for _, s := range c.Strategies {
				names = append(names, s.Name)
			}
			r.diags = append(r.diags, domain.Diagnostic{
				Kind:     domain.DiagnosticPatternNotFound,
				Field:    field,
				Strategy: strings.Join(names, ","),
				Message:  "no strategy found a value",
			})
		}
		return
	}
	*dst = out.Value
	r.doc.Provenance[field] = out.Provenance
}
