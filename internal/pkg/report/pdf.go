package report

import (
	"fmt"
	"strconv"
	"time"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/code"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"github.com/strogmv/walletd/internal/domain"
)

// Generator generates PDF receipts.
type Generator struct {
	// VerifyBaseURL prefixes the transaction hash in the verification QR code.
	VerifyBaseURL string
}

// NewGenerator creates a new receipt generator.
func NewGenerator(verifyBaseURL string) *Generator {
	return &Generator{VerifyBaseURL: verifyBaseURL}
}

// TransferReceipt renders a one-page receipt for t.
func (g *Generator) TransferReceipt(t *domain.Transfer) ([]byte, error) {
	m := maroto.New()

	m.AddRows(
		row.New(20).Add(
			col.New(12).Add(
				text.New("TRANSFER RECEIPT", props.Text{
					Align: align.Center,
					Size:  20,
					Style: fontstyle.Bold,
				}),
			),
		),
		row.New(10).Add(
			col.New(12).Add(
				text.New(fmt.Sprintf("Transfer %s", t.ID), props.Text{
					Align: align.Center,
					Size:  10,
				}),
			),
		),
	)

	lines := [][2]string{
		{"Type", string(t.Kind)},
		{"Date", t.CreatedAt.UTC().Format(time.RFC3339)},
		{"From", t.PayerID},
		{"To", t.PayeeID},
		{"Amount", strconv.FormatInt(t.Amount, 10) + " " + t.Asset},
	}
	if t.Kind == domain.KindSwap {
		lines = append(lines,
			[2]string{"Received", strconv.FormatInt(t.ToAmount, 10) + " " + t.ToAsset},
			[2]string{"Rate", t.Rate},
		)
	}
	if t.Memo != "" {
		lines = append(lines, [2]string{"Memo", t.Memo})
	}
	lines = append(lines, [2]string{"Transaction", t.TxHash})

	m.AddRows(
		row.New(15).Add(
			col.New(12).Add(
				text.New("DETAILS", props.Text{Style: fontstyle.Bold, Top: 5}),
			),
		),
	)
	for _, l := range lines {
		m.AddRows(
			row.New(10).Add(
				col.New(3).Add(text.New(l[0])),
				col.New(9).Add(text.New(l[1], props.Text{Style: fontstyle.Bold, Size: 9})),
			),
		)
	}

	if t.TxHash != "" {
		m.AddRows(
			row.New(40).Add(
				col.New(4).Add(
					code.NewQr(g.VerifyBaseURL+t.TxHash, props.Rect{
						Percent: 100,
					}),
				),
				col.New(8).Add(
					text.New("Scan to look up the transaction.", props.Text{
						Top: 15,
					}),
				),
			),
		)
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("generate receipt: %w", err)
	}

	return doc.GetBytes(), nil
}
