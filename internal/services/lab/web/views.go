package web

import (
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/a-h/templ"
	"github.com/louisbranch/smartlab/internal/lab/catalog"
	"github.com/louisbranch/smartlab/internal/lab/reaction"
	"github.com/louisbranch/smartlab/internal/lab/selection"
	"github.com/louisbranch/smartlab/internal/lab/session"
	"golang.org/x/text/message"
)

// browsePerCategory is how many substances each browse group shows.
const browsePerCategory = 5

// categoryGroup is one browse section of the lab page.
type categoryGroup struct {
	Category   catalog.Category
	Substances []catalog.Substance
}

// labPageView carries everything the lab page renders.
type labPageView struct {
	Locale      string
	Printer     *message.Printer
	State       session.State
	Query       string
	Suggestions []catalog.Substance
	Browse      []categoryGroup
	ResultImage string
	Notice      string
}

// htmlWriter stops writing after the first error.
type htmlWriter struct {
	w   io.Writer
	err error
}

func (h *htmlWriter) raw(s string) {
	if h.err != nil {
		return
	}
	_, h.err = io.WriteString(h.w, s)
}

func (h *htmlWriter) text(s string) {
	h.raw(templ.EscapeString(s))
}

func (h *htmlWriter) attr(name, value string) {
	h.raw(" " + name + "=\"" + templ.EscapeString(value) + "\"")
}

func (h *htmlWriter) formula(formula string) {
	for _, seg := range catalog.FormulaSegments(formula) {
		if seg.Subscript {
			h.raw("<sub>")
			h.text(seg.Text)
			h.raw("</sub>")
			continue
		}
		h.text(seg.Text)
	}
}

// labPage renders the full lab document.
func labPage(view labPageView) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := view.Printer
		h := &htmlWriter{w: w}
		h.raw("<!DOCTYPE html><html")
		h.attr("lang", view.Locale)
		h.raw("><head><meta charset=\"utf-8\"><meta name=\"viewport\" content=\"width=device-width, initial-scale=1\">")
		if view.State.InFlight() {
			h.raw("<noscript><meta http-equiv=\"refresh\" content=\"2\"></noscript>")
		}
		h.raw("<title>")
		h.text(p.Sprintf("lab.title"))
		h.raw("</title><script src=\"https://unpkg.com/htmx.org@2.0.4\"></script></head><body")
		h.attr("data-version", strconv.FormatUint(view.State.Version, 10))
		h.attr("data-phase", string(view.State.Phase))
		h.raw("><main class=\"lab\"><header><h1>")
		h.text(p.Sprintf("lab.title"))
		h.raw("</h1><p>")
		h.text(p.Sprintf("lab.welcome"))
		h.raw("</p></header>")
		if view.Notice != "" {
			h.raw("<p class=\"notice\" role=\"alert\">")
			h.text(view.Notice)
			h.raw("</p>")
		}
		if h.err != nil {
			return h.err
		}
		if err := searchBox(view).Render(ctx, w); err != nil {
			return err
		}
		if err := tubes(view).Render(ctx, w); err != nil {
			return err
		}
		if err := optionsForm(view).Render(ctx, w); err != nil {
			return err
		}
		if err := outcomePanel(view).Render(ctx, w); err != nil {
			return err
		}
		if err := browsePanel(view).Render(ctx, w); err != nil {
			return err
		}
		h.raw("</main>")
		if view.State.SessionID != "" {
			h.raw(liveScript)
		}
		h.raw("</body></html>")
		return h.err
	})
}

// liveScript reloads the page when the session moves to a newer version
// pushed over /ws. Visitors without a session get no socket.
const liveScript = `<script>(function(){
var body=document.body,seen=Number(body.dataset.version||0);
var proto=location.protocol==="https:"?"wss://":"ws://";
var ws=new WebSocket(proto+location.host+"/ws");
ws.onmessage=function(ev){var f=JSON.parse(ev.data);
if(f.type==="lab.state"&&f.state.version>seen&&f.state.phase!==body.dataset.phase){location.reload();}};
})();</script>`

func searchBox(view labPageView) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := view.Printer
		h := &htmlWriter{w: w}
		h.raw("<section class=\"search\"><form method=\"get\" action=\"/\"><input type=\"search\" name=\"q\" autocomplete=\"off\"")
		h.attr("placeholder", p.Sprintf("lab.search.placeholder"))
		h.attr("value", view.Query)
		h.raw(" hx-get=\"/search\" hx-trigger=\"input changed delay:200ms\" hx-target=\"#suggestions\"")
		if view.State.Phase == session.PhaseInFlight || len(view.State.Selection) >= selection.Capacity {
			h.raw(" disabled")
		}
		h.raw("></form><div id=\"suggestions\">")
		if h.err != nil {
			return h.err
		}
		if strings.TrimSpace(view.Query) != "" {
			if err := suggestionList(p, view.Suggestions).Render(ctx, w); err != nil {
				return err
			}
		}
		h.raw("</div></section>")
		return h.err
	})
}

// suggestionList renders search results as add buttons.
func suggestionList(p *message.Printer, results []catalog.Substance) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		if len(results) == 0 {
			h.raw("<p class=\"empty\">")
			h.text(p.Sprintf("lab.search.empty"))
			h.raw("</p>")
			return h.err
		}
		h.raw("<ul class=\"suggestions\">")
		for _, s := range results {
			h.raw("<li>")
			addButton(h, p, s)
			h.raw("</li>")
		}
		h.raw("</ul>")
		return h.err
	})
}

func addButton(h *htmlWriter, p *message.Printer, s catalog.Substance) {
	h.raw("<form method=\"post\" action=\"/selection\"><input type=\"hidden\" name=\"id\"")
	h.attr("value", s.ID)
	h.raw("><button type=\"submit\"")
	h.attr("title", p.Sprintf("lab.action.add"))
	h.raw("><span class=\"name\">")
	h.text(s.Name)
	h.raw("</span> <span class=\"formula\">")
	h.formula(s.Formula)
	h.raw("</span> <span class=\"category\">")
	h.text(string(s.Category))
	h.raw("</span></button></form>")
}

func tubes(view labPageView) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		p := view.Printer
		h := &htmlWriter{w: w}
		h.raw("<section class=\"tubes\"><h2>")
		h.text(p.Sprintf("lab.selection.heading"))
		h.raw("</h2><ol>")
		for i := 0; i < selection.Capacity; i++ {
			if i >= len(view.State.Selection) {
				h.raw("<li class=\"tube empty\">")
				h.text(p.Sprintf("lab.selection.empty_slot"))
				h.raw("</li>")
				continue
			}
			s := view.State.Selection[i]
			h.raw("<li")
			h.attr("class", strings.TrimSpace("tube "+s.Color))
			h.raw("><a")
			h.attr("href", "/substances/"+s.ID)
			h.attr("hx-get", "/substances/"+s.ID)
			h.raw(" hx-target=\"#detail\">")
			h.text(s.Name)
			h.raw("</a> <span class=\"formula\">")
			h.formula(s.Formula)
			h.raw("</span><form method=\"post\"")
			h.attr("action", "/selection/"+s.ID+"/remove")
			h.raw("><button type=\"submit\">")
			h.text(p.Sprintf("lab.action.remove"))
			h.raw("</button></form></li>")
		}
		h.raw("</ol><div id=\"detail\"></div><form method=\"post\" action=\"/simulate\"><button type=\"submit\"")
		if !view.State.CanSimulate() {
			h.raw(" disabled")
		}
		h.raw(">")
		if view.State.InFlight() {
			h.text(p.Sprintf("lab.action.simulating"))
		} else {
			h.text(p.Sprintf("lab.action.simulate"))
		}
		h.raw("</button></form><form method=\"post\" action=\"/clear\"><button type=\"submit\">")
		h.text(p.Sprintf("lab.action.clear"))
		h.raw("</button></form></section>")
		return h.err
	})
}

func optionsForm(view labPageView) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		p := view.Printer
		opts := view.State.Options
		h := &htmlWriter{w: w}
		h.raw("<section class=\"options\"><h2>")
		h.text(p.Sprintf("lab.options.heading"))
		h.raw("</h2><form method=\"post\" action=\"/options\"><label>")
		h.text(p.Sprintf("lab.options.concentration"))
		h.raw(" <select name=\"concentration\">")
		for _, c := range []struct {
			value reaction.Concentration
			key   string
		}{
			{reaction.ConcentrationDilute, "lab.options.dilute"},
			{reaction.ConcentrationConcentrated, "lab.options.concentrated"},
		} {
			h.raw("<option")
			h.attr("value", string(c.value))
			if opts.Concentration == c.value {
				h.raw(" selected")
			}
			h.raw(">")
			h.text(p.Sprintf(c.key))
			h.raw("</option>")
		}
		h.raw("</select></label><label><input type=\"checkbox\" name=\"use_indicator\" value=\"true\"")
		if opts.UseIndicator {
			h.raw(" checked")
		}
		h.raw("> ")
		h.text(p.Sprintf("lab.options.indicator"))
		h.raw("</label><button type=\"submit\">")
		h.text(p.Sprintf("lab.action.apply"))
		h.raw("</button></form></section>")
		return h.err
	})
}

func outcomePanel(view labPageView) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		p := view.Printer
		st := view.State
		h := &htmlWriter{w: w}
		switch {
		case st.Failure != nil:
			h.raw("<section class=\"outcome failed\" role=\"alert\"><p>")
			h.text(st.Failure.Message(view.Locale))
			h.raw("</p>")
		case st.Result != nil:
			writeResult(h, p, *st.Result, view.ResultImage)
		default:
			return nil
		}
		h.raw("<form method=\"post\" action=\"/result/dismiss\"><button type=\"submit\">")
		h.text(p.Sprintf("lab.action.dismiss"))
		h.raw("</button></form></section>")
		return h.err
	})
}

func writeResult(h *htmlWriter, p *message.Printer, res reaction.Result, image string) {
	h.raw("<section class=\"outcome resolved\"><h2>")
	h.text(p.Sprintf("lab.result.heading"))
	h.raw("</h2>")
	if res.IsNoReaction() {
		h.raw("<p class=\"no-reaction\">")
		h.text(p.Sprintf("lab.result.no_reaction"))
		h.raw("</p>")
	}
	h.raw("<div class=\"swatch\"")
	h.attr("style", "background-color:"+res.HexColor)
	h.attr("title", p.Sprintf("lab.result.color"))
	h.raw("></div>")
	if image != "" {
		h.raw("<img")
		h.attr("src", image)
		h.attr("alt", res.ImageDescription)
		h.raw(">")
	}
	h.raw("<dl>")
	field := func(key, value string) {
		if value == "" {
			return
		}
		h.raw("<dt>")
		h.text(p.Sprintf(key))
		h.raw("</dt><dd>")
		h.text(value)
		h.raw("</dd>")
	}
	field("lab.result.equation", res.Equation)
	field("lab.result.phenomena", res.Phenomena)
	field("lab.result.properties", res.Properties)
	field("lab.result.color", res.HexColor)
	if res.HasGas {
		h.raw("<dt>")
		h.text(p.Sprintf("lab.result.gas"))
		h.raw("</dt><dd>&#10003;</dd>")
	}
	if res.HasPrecipitate {
		h.raw("<dt>")
		h.text(p.Sprintf("lab.result.precipitate"))
		h.raw("</dt><dd>&#10003;</dd>")
		field("lab.result.precipitate_color", res.PrecipitateColor)
	}
	field("lab.result.indicator_color", res.IndicatorColor)
	h.raw("</dl>")
	if res.SafetyWarning != "" {
		h.raw("<p class=\"safety\"><strong>")
		h.text(p.Sprintf("lab.result.safety"))
		h.raw(":</strong> ")
		h.text(res.SafetyWarning)
		h.raw("</p>")
	}
}

func browsePanel(view labPageView) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		p := view.Printer
		h := &htmlWriter{w: w}
		h.raw("<section class=\"browse\"><h2>")
		h.text(p.Sprintf("lab.browse.heading"))
		h.raw("</h2>")
		for _, group := range view.Browse {
			h.raw("<h3>")
			h.text(string(group.Category))
			h.raw("</h3><ul>")
			for _, s := range group.Substances {
				h.raw("<li>")
				addButton(h, p, s)
				h.raw("</li>")
			}
			h.raw("</ul>")
		}
		h.raw("</section>")
		return h.err
	})
}

// substanceDetail renders the detail fragment for one substance.
func substanceDetail(p *message.Printer, s catalog.Substance, structureURL, placeholderURL string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw("<article class=\"substance\"")
		h.attr("data-id", s.ID)
		h.raw("><h3>")
		h.text(s.Name)
		h.raw("</h3>")
		if structureURL != "" {
			h.raw("<img")
			h.attr("src", structureURL)
			h.attr("alt", s.Name)
			if placeholderURL != "" {
				h.attr("onerror", "this.onerror=null;this.src='"+placeholderURL+"'")
			}
			h.raw("><p class=\"source\">")
			h.text(p.Sprintf("lab.detail.structure_source"))
			h.raw("</p>")
		}
		h.raw("<dl><dt>")
		h.text(p.Sprintf("lab.detail.formula"))
		h.raw("</dt><dd>")
		h.formula(s.Formula)
		h.raw("</dd><dt>")
		h.text(p.Sprintf("lab.detail.state"))
		h.raw("</dt><dd>")
		h.text(string(s.State))
		h.raw("</dd></dl></article>")
		return h.err
	})
}
