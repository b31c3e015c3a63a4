package portal

import "testing"

func TestParseBalance(t *testing.T) {
	tests := []struct {
		name   string
		markup string
		want   float64
		ok     bool
	}{
		{
			"plain",
			`<p class="solde">137,45 $</p>`,
			137.45, true,
		},
		{
			"nbsp grouping",
			"<p class=\"solde\">1 137,45 $</p>",
			1137.45, true,
		},
		{
			"space grouping and layout whitespace",
			`<p class="solde">
				2 450,00 $
			</p>`,
			2450.00, true,
		},
		{
			"credit",
			`<p class="solde">-25,10 $</p>`,
			-25.10, true,
		},
		{
			"no balance paragraph",
			`<p class="autre">137,45 $</p>`,
			0, false,
		},
		{
			"garbage amount",
			`<p class="solde">n/a</p>`,
			0, false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseBalance(tt.markup)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if ok && got != tt.want {
				t.Fatalf("balance = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseContractID(t *testing.T) {
	tests := []struct {
		name   string
		markup string
		want   string
		ok     bool
	}{
		{
			"labelled with layout whitespace",
			"<div class=\"contrat\">Contrat\n\t\t1234 5678</div>",
			"12345678", true,
		},
		{
			"bare number",
			`<div class="contrat"> 987 654 321 </div>`,
			"987654321", true,
		},
		{
			"no contract block",
			`<div class="autre">1234</div>`,
			"", false,
		},
		{
			"empty block",
			`<div class="contrat">Contrat </div>`,
			"", false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseContractID(tt.markup)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if got != tt.want {
				t.Fatalf("contract = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMultiAccountSummary(t *testing.T) {
	f := newFakePortal(t)
	f.accountHTML = `<html><body><div class="entete-multi-compte">comptes</div>
<article class="compte" id="compte-111"><p class="solde">10,00 $</p></article>
<article class="compte" id="compte-222"><p class="autre">pas de solde</p></article>
</body></html>`
	f.contractHTML = `<div class="contrat">Contrat 111222</div>`

	cust := loginCustomer(t, f)

	// compte-222 has no balance paragraph: it is dropped, not an error.
	if cust.ContractID() != "111222" {
		t.Fatalf("contract = %q, want 111222", cust.ContractID())
	}
	if cust.Balance() != 10.0 {
		t.Fatalf("balance = %v, want 10", cust.Balance())
	}
	// Resolving the contract of the surviving block needs exactly one
	// per-ncc lookup.
	if got := f.callCount("contract-detail"); got != 1 {
		t.Fatalf("contract-detail calls = %d, want 1", got)
	}
}
