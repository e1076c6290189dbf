package render

import (
	"strings"

	"golang.org/x/net/html"
)

// LoopAttribute marks an element whose children repeat once per resolved field.
const LoopAttribute = "data-attribute-loop"

// loopBlock locates a loop element inside the template by byte offsets.
type loopBlock struct {
	start  int
	end    int
	config string
	body   string
}

var voidElements = map[string]struct{}{
	"area": {}, "base": {}, "br": {}, "col": {}, "embed": {}, "hr": {}, "img": {},
	"input": {}, "link": {}, "meta": {}, "param": {}, "source": {}, "track": {}, "wbr": {},
}

// findLoops returns the outermost loop elements of tpl in document order. Depth is tracked per tag
// name, so same-named children inside a body close correctly. Loop markers nested inside a body are
// part of that body and are not reported. Elements that never close are skipped.
func findLoops(tpl string) []loopBlock {
	if !strings.Contains(tpl, LoopAttribute) {
		return nil
	}

	type openLoop struct {
		tag       string
		depth     int
		start     int
		bodyStart int
		config    string
	}

	var (
		blocks []loopBlock
		open   *openLoop
		pos    int
	)
	z := html.NewTokenizer(strings.NewReader(tpl))
	for {
		tt := z.Next()
		tokStart := pos
		pos += len(z.Raw())
		if tt == html.ErrorToken {
			return blocks
		}

		if open == nil {
			if tt != html.StartTagToken {
				continue
			}
			name, hasAttr := z.TagName()
			tag := string(name)
			if _, void := voidElements[tag]; void || !hasAttr {
				continue
			}
			if config, ok := loopConfigAttr(z); ok {
				open = &openLoop{tag: tag, depth: 1, start: tokStart, bodyStart: pos, config: config}
			}
			continue
		}

		switch tt {
		case html.StartTagToken:
			if name, _ := z.TagName(); string(name) == open.tag {
				open.depth++
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			if string(name) != open.tag {
				continue
			}
			open.depth--
			if open.depth == 0 {
				blocks = append(blocks, loopBlock{
					start:  open.start,
					end:    pos,
					config: open.config,
					body:   tpl[open.bodyStart:tokStart],
				})
				open = nil
			}
		}
	}
}

func loopConfigAttr(z *html.Tokenizer) (string, bool) {
	for {
		key, val, more := z.TagAttr()
		if string(key) == LoopAttribute {
			return string(val), true
		}
		if !more {
			return "", false
		}
	}
}
