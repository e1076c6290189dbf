package render

import (
	"strings"
	"sync"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/hansupo/shad-label/internal/domain"
)

func parseHTML(t testing.TB, body string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	require.NoError(t, err)
	return doc
}

func TestRenderFlatPlaceholderWithFilter(t *testing.T) {
	engine := NewEngine()
	catalog := []domain.Attribute{attr("01A", "hind", "Hind", domain.AttributeTypeText, 90, false)}
	product := &domain.Product{Name: "Helmet", Attributes: map[string]string{"Hind": "49.90"}}

	out := engine.Render("<div>{{Hind|removeTrailingZeros}}</div>", product, catalog)
	require.Equal(t, "<div>49.9</div>", out)
}

func TestRenderLoopLimitKeepsHighestPriority(t *testing.T) {
	engine := NewEngine()
	catalog := []domain.Attribute{
		attr("01A", "material", "Material", domain.AttributeTypeText, 70, false),
		attr("01B", "color", "Color", domain.AttributeTypeText, 90, false),
	}
	product := &domain.Product{Name: "Helmet", Attributes: map[string]string{"Material": "ABS", "Color": "Black"}}

	out := engine.Render(`<div data-attribute-loop="limit:1"><span>{{attributeLabel}}</span></div>`, product, catalog)
	require.Equal(t, "<span>Color</span>", out)
	require.NotContains(t, out, "Material")
}

func TestRenderLoopBodyPlaceholders(t *testing.T) {
	engine := NewEngine()
	product := sampleProduct()
	tpl := `<table><tbody data-attribute-loop="type:text;limit:2">` +
		`<tr class="{{attributeType}}"><th>{{attributeLabel}}</th><td data-name="{{attributeName}}">{{attributeValue|truncate}}</td></tr>` +
		`</tbody></table>`

	out := engine.Render(tpl, &product, sampleCatalog())
	require.Equal(t,
		`<table><tr class="text"><th>Color</th><td data-name="color">Black</td></tr>`+
			`<tr class="text"><th>Size</th><td data-name="size">M</td></tr></table>`,
		out)
}

func TestRenderLoopWrapperConsumedWithSameTagChildren(t *testing.T) {
	engine := NewEngine()
	product := sampleProduct()
	tpl := `<section><div data-attribute-loop="priorityMin:70">` +
		`<div class="row"><div class="label">{{attributeLabel}}</div><div class="value">{{attributeValue}}</div></div>` +
		`</div><p class="name">{{productName}}</p></section>`

	out := engine.Render(tpl, &product, sampleCatalog())
	doc := parseHTML(t, out)

	require.Zero(t, doc.Find("[data-attribute-loop]").Length())
	rows := doc.Find("section > div.row")
	require.Equal(t, 3, rows.Length())
	require.Equal(t, "Color", rows.Eq(0).Find(".label").Text())
	require.Equal(t, "Black", rows.Eq(0).Find(".value").Text())
	require.Equal(t, "Material", rows.Eq(2).Find(".label").Text())
	require.Equal(t, "Sample Bike Helmet", doc.Find("p.name").Text())
}

func TestRenderMultipleLoops(t *testing.T) {
	engine := NewEngine()
	product := sampleProduct()
	tpl := `<ul data-attribute-loop="type:qrcode"><li>{{attributeValue|urlEncode}}</li></ul>` +
		`<hr>` +
		`<ol data-attribute-loop="type:barcode"><li>{{attributeValue}}</li></ol>`

	out := engine.Render(tpl, &product, sampleCatalog())
	require.Equal(t, "<li>https%3A%2F%2Fexample.com%2Fproducts%2Fhelm-001</li><hr><li>1234567890123</li>", out)
}

func TestRenderLoopWithoutConfigRendersEverything(t *testing.T) {
	engine := NewEngine()
	product := sampleProduct()
	out := engine.Render(`<div data-attribute-loop><b>{{attributeLabel}}</b></div>`, &product, sampleCatalog())

	doc := parseHTML(t, out)
	var got []string
	doc.Find("b").Each(func(_ int, s *goquery.Selection) {
		got = append(got, s.Text())
	})
	require.Equal(t, []string{"Color", "Size", "Material", "Product URL", "QR Code", "Barcode"}, got)
}

func TestRenderLoopWithNoFieldsRemovesElement(t *testing.T) {
	engine := NewEngine()
	product := sampleProduct()
	out := engine.Render(`<p>a</p><div data-attribute-loop="priorityMin:99"><b>{{attributeLabel}}</b></div><p>b</p>`, &product, sampleCatalog())
	require.Equal(t, "<p>a</p><p>b</p>", out)
}

func TestRenderNestedLoopMarkersAreNotExpanded(t *testing.T) {
	engine := NewEngine()
	product := sampleProduct()
	tpl := `<section data-attribute-loop="limit:1"><div data-attribute-loop="limit:5"><b>{{attributeName}}</b></div></section>`

	out := engine.Render(tpl, &product, sampleCatalog())
	require.Equal(t, `<div data-attribute-loop="limit:5"><b>color</b></div>`, out)
}

func TestRenderUnclosedLoopIsLeftUntouched(t *testing.T) {
	engine := NewEngine()
	product := sampleProduct()
	tpl := `<div data-attribute-loop="limit:1"><span>{{attributeLabel}}</span>`

	require.Equal(t, tpl, engine.Render(tpl, &product, sampleCatalog()))
}

func TestRenderVoidElementMarkerIsIgnored(t *testing.T) {
	engine := NewEngine()
	product := sampleProduct()
	tpl := `<img data-attribute-loop="limit:1" src="{{QR Code}}">`

	out := engine.Render(tpl, &product, sampleCatalog())
	require.Equal(t, `<img data-attribute-loop="limit:1" src="https://example.com/products/helm-001">`, out)
}

func TestRenderLeavesUnresolvedPlaceholders(t *testing.T) {
	engine := NewEngine()
	product := sampleProduct()
	tpl := `<p>{{ Color }}</p><p>{{Missing|round:2}}</p><p>{{attributeValue}}</p><p>{{}}</p>`

	out := engine.Render(tpl, &product, sampleCatalog())
	require.Equal(t, `<p>Black</p><p>{{Missing|round:2}}</p><p>{{attributeValue}}</p><p>{{}}</p>`, out)
}

func TestRenderProductNameAcceptsFilters(t *testing.T) {
	engine := NewEngine()
	product := &domain.Product{Name: "ROMET Gazela 2 (2024)"}
	out := engine.Render("<h1>{{productName|truncate}}</h1><h2>{{productName}}</h2>", product, nil)
	require.Equal(t, "<h1>ROMET Gazela 2</h1><h2>ROMET Gazela 2 (2024)</h2>", out)
}

func TestRenderPriorityDisambiguation(t *testing.T) {
	engine := NewEngine()
	catalog := []domain.Attribute{
		attr("01A", "list_price", "Price", domain.AttributeTypeText, 40, false),
		attr("01B", "sale_price", "Price", domain.AttributeTypeText, 85, false),
	}
	product := &domain.Product{Name: "Bike", Attributes: map[string]string{"Price": "1299.00"}}

	out := engine.Render(`{{Price|formatCurrency}}|<i data-attribute-loop>{{attributeName}}</i>`, product, catalog)
	require.Equal(t, "1299€|sale_price", out)
}

func TestRenderWithoutProduct(t *testing.T) {
	tpl := `<div data-attribute-loop="limit:1">{{attributeLabel}}</div>{{Color}}`
	require.Equal(t, tpl, NewEngine().Render(tpl, nil, sampleCatalog()))
	require.Equal(t, DefaultEmptyMessage, NewEngine().Render("", nil, sampleCatalog()))
	require.Equal(t, "<p>pick one</p>", NewEngine(WithEmptyMessage("<p>pick one</p>")).Render("", nil, nil))
	require.Equal(t, DefaultEmptyMessage, NewEngine(WithEmptyMessage("  ")).Render("", nil, nil))
}

func TestRenderUsesConfiguredSearchURL(t *testing.T) {
	engine := NewEngine(WithSearchURL("https://shop.test/?s="))
	product := &domain.Product{Name: "Gazela"}
	out := engine.Render("{{productName|searchVM}}", product, nil)
	require.Equal(t, "https%3A%2F%2Fshop.test%2F%3Fs%3DGazela", out)
}

func TestRenderSearchURLKeepsCustomFilters(t *testing.T) {
	shout := Filters{"shout": func(value string, _ []string) string { return strings.ToUpper(value) }}
	engine := NewEngine(WithFilters(shout), WithSearchURL("https://shop.test/?s="))
	product := &domain.Product{Name: "Gazela"}

	out := engine.Render("{{productName|shout}} {{productName|searchVM}}", product, nil)
	require.Equal(t, "GAZELA https%3A%2F%2Fshop.test%2F%3Fs%3DGazela", out)
	require.NotContains(t, shout, "searchVM")
}

func TestRenderSkipsLabelsWithoutCatalogAttribute(t *testing.T) {
	engine := NewEngine()
	catalog := []domain.Attribute{attr("01A", "color", "Color", domain.AttributeTypeText, 90, false)}
	product := &domain.Product{Name: "Bike", Attributes: map[string]string{"Color": "Red", "Supplier SKU": "X-1"}}
	tpl := `<ul data-attribute-loop><li>{{attributeLabel}}={{attributeValue}} [{{attributeType}}]</li></ul><p>{{Supplier SKU}}</p>`

	out := engine.Render(tpl, product, catalog)
	require.Equal(t, `<li>Color=Red [text]</li><p>{{Supplier SKU}}</p>`, out)
}

func TestRenderIsSafeForConcurrentUse(t *testing.T) {
	engine := NewEngine()
	catalog := sampleCatalog()
	tpl := `<div data-attribute-loop="limit:3"><span>{{attributeLabel}}:{{attributeValue}}</span></div>{{productName}}`
	product := sampleProduct()
	want := engine.Render(tpl, &product, catalog)

	var wg sync.WaitGroup
	results := make([]string, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p := sampleProduct()
			results[i] = engine.Render(tpl, &p, catalog)
		}(i)
	}
	wg.Wait()
	for _, got := range results {
		require.Equal(t, want, got)
	}
}

func TestPlaceholders(t *testing.T) {
	got := Placeholders("{{Size}} {{ Color |round}} {{Size|truncate}} {{}} {{productName}}")
	require.Equal(t, []string{"Color", "Size", "productName"}, got)
	require.Nil(t, Placeholders("<p>plain</p>"))
}

func TestRenderWithoutPlaceholdersRoundTrips(t *testing.T) {
	engine := NewEngine()
	catalog := sampleCatalog()
	product := sampleProduct()
	rapid.Check(t, func(t *rapid.T) {
		tpl := rapid.StringMatching(`[a-zA-Z0-9 <>/="!.,}]{0,80}`).Draw(t, "template")
		if got := engine.Render(tpl, &product, catalog); got != tpl {
			t.Fatalf("render changed template %q into %q", tpl, got)
		}
	})
}

func TestRenderIsIdempotentOnceResolved(t *testing.T) {
	engine := NewEngine()
	catalog := sampleCatalog()
	pieces := []string{
		"<p>", "</p>", "text ", "{{Color}}", "{{Size|formatCurrency}}", "{{productName|truncate}}",
		"{{Material|round:1}}",
		`<div data-attribute-loop="limit:2"><i>{{attributeLabel}}={{attributeValue}}</i></div>`,
		`<ul data-attribute-loop="type:text;priorityMax:80"><li>{{attributeName}}</li></ul>`,
	}
	rapid.Check(t, func(t *rapid.T) {
		parts := rapid.SliceOfN(rapid.SampledFrom(pieces), 0, 8).Draw(t, "pieces")
		value := rapid.StringMatching(`[a-zA-Z0-9]{1,8}`)
		product := &domain.Product{
			Name: value.Draw(t, "name"),
			Attributes: map[string]string{
				"Color":    value.Draw(t, "color"),
				"Size":     value.Draw(t, "size"),
				"Material": value.Draw(t, "material"),
			},
		}

		first := engine.Render(strings.Join(parts, ""), product, catalog)
		if strings.Contains(first, "{{") {
			t.Skip("output still has placeholders")
		}
		if second := engine.Render(first, product, catalog); second != first {
			t.Fatalf("second render changed output %q into %q", first, second)
		}
	})
}
