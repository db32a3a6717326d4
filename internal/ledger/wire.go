package ledger

import "encoding/json"

// Wire structures for the accounting API's batch posting format. Each item
// nests a cost-center allocation which in turn nests a project allocation;
// amounts repeat at every level.

// BatchPayload is the envelope posted to the accounting API.
type BatchPayload struct {
	Company      int         `json:"empresa"`
	Batch        int         `json:"lote"`
	Action       int         `json:"acao"`
	PostingDate  string      `json:"dataLancamento"`
	KeepUnposted string      `json:"lancNaoAtualizadoGravar"`
	Operation    string      `json:"operacao"`
	Items        []BatchItem `json:"itensLancamento"`
}

// BatchItem is one posting item. Exactly one of CreditAccount or
// DebitAccount is set, matching the entry's side.
type BatchItem struct {
	Branch        int              `json:"filial"`
	CreditAccount int              `json:"contaCreditoRed,omitempty"`
	DebitAccount  int              `json:"contaDebitoRed,omitempty"`
	Complement    string           `json:"complemento"`
	Amount        json.Number      `json:"valor"`
	Operation     string           `json:"operacao"`
	CostCenters   []CostCenterItem `json:"centroCusto"`
}

// CostCenterItem allocates the item amount to a reduced cost center.
type CostCenterItem struct {
	Reduced   int           `json:"centroCustoReduzido"`
	Amount    json.Number   `json:"valor"`
	Nature    string        `json:"natureza"`
	Operation string        `json:"operacao"`
	Projects  []ProjectItem `json:"projeto"`
}

// ProjectItem allocates the amount to a reduced project.
type ProjectItem struct {
	Reduced   int         `json:"projetoReduzido"`
	Amount    json.Number `json:"valor"`
	Operation string      `json:"operacao"`
}

const insertOperation = "I"

// BatchItems renders entries into the nested wire format, preserving order.
func BatchItems(entries []Entry) []BatchItem {
	items := make([]BatchItem, 0, len(entries))
	for _, e := range entries {
		amount := json.Number(e.Amount.String())

		item := BatchItem{
			Branch:     e.BranchCode,
			Complement: e.Narrative,
			Amount:     amount,
			Operation:  insertOperation,
			CostCenters: []CostCenterItem{{
				Reduced:   e.CostCenterReduced,
				Amount:    amount,
				Nature:    string(e.Side),
				Operation: insertOperation,
				Projects: []ProjectItem{{
					Reduced:   e.ProjectReduced,
					Amount:    amount,
					Operation: insertOperation,
				}},
			}},
		}

		switch e.Side {
		case Credit:
			item.CreditAccount = e.ReducedAccountCode
		case Debit:
			item.DebitAccount = e.ReducedAccountCode
		}

		items = append(items, item)
	}
	return items
}
