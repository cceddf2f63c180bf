package labmcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/louisbranch/smartlab/internal/lab/catalog"
	"github.com/louisbranch/smartlab/internal/lab/reaction"
	"github.com/louisbranch/smartlab/internal/lab/session"
	apperrors "github.com/louisbranch/smartlab/internal/platform/errors"
	i18ncatalog "github.com/louisbranch/smartlab/internal/platform/i18n/catalog"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// SubstanceSearchInput is the substance_search tool input.
type SubstanceSearchInput struct {
	Query string `json:"query" jsonschema:"case-insensitive fragment of a substance name or formula"`
}

// SubstanceSearchResult lists matches in catalog order.
type SubstanceSearchResult struct {
	Substances []catalog.Substance `json:"substances"`
}

// SubstanceGetInput is the substance_get tool input.
type SubstanceGetInput struct {
	ID string `json:"id" jsonschema:"catalog id of the substance"`
}

// SubstanceGetResult is one catalog entry with its structure image.
type SubstanceGetResult struct {
	Substance    catalog.Substance `json:"substance"`
	StructureURL string            `json:"structure_url,omitempty"`
}

// ReactionSimulateInput is the reaction_simulate tool input.
type ReactionSimulateInput struct {
	FirstID       string `json:"first_id" jsonschema:"catalog id of the first reactant"`
	SecondID      string `json:"second_id" jsonschema:"catalog id of the second reactant"`
	Concentration string `json:"concentration,omitempty" jsonschema:"dilute (default) or concentrated"`
	UseIndicator  bool   `json:"use_indicator,omitempty" jsonschema:"add phenolphthalein indicator"`
}

// ReactionSimulateResult reports the terminal phase and either the result
// or the failure code with its user message.
type ReactionSimulateResult struct {
	Phase     string           `json:"phase"`
	Reactants []string         `json:"reactants"`
	Result    *reaction.Result `json:"result,omitempty"`
	ErrorCode string           `json:"error_code,omitempty"`
	Message   string           `json:"message,omitempty"`
}

// SubstanceSearchTool defines the substance_search tool.
func SubstanceSearchTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "substance_search",
		Description: "Searches the lab catalog by name or formula and returns up to 8 substances",
	}
}

// SubstanceGetTool defines the substance_get tool.
func SubstanceGetTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "substance_get",
		Description: "Returns one catalog substance by id",
	}
}

// ReactionSimulateTool defines the reaction_simulate tool.
func ReactionSimulateTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "reaction_simulate",
		Description: "Simulates the reaction between two catalog substances",
	}
}

func (s *Server) substanceSearchHandler() mcp.ToolHandlerFor[SubstanceSearchInput, SubstanceSearchResult] {
	return func(_ context.Context, _ *mcp.CallToolRequest, input SubstanceSearchInput) (*mcp.CallToolResult, SubstanceSearchResult, error) {
		return nil, SubstanceSearchResult{Substances: s.index.Query(input.Query)}, nil
	}
}

func (s *Server) substanceGetHandler() mcp.ToolHandlerFor[SubstanceGetInput, SubstanceGetResult] {
	return func(_ context.Context, _ *mcp.CallToolRequest, input SubstanceGetInput) (*mcp.CallToolResult, SubstanceGetResult, error) {
		substance, err := s.catalog.Get(strings.TrimSpace(input.ID))
		if err != nil {
			return nil, SubstanceGetResult{}, userError(err)
		}
		structure, _ := s.images.StructureURL(substance.Name)
		return nil, SubstanceGetResult{Substance: substance, StructureURL: structure}, nil
	}
}

// reactionSimulateHandler runs each call on a fresh controller so the web
// lab's validation and failure rules apply unchanged.
func (s *Server) reactionSimulateHandler() mcp.ToolHandlerFor[ReactionSimulateInput, ReactionSimulateResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input ReactionSimulateInput) (*mcp.CallToolResult, ReactionSimulateResult, error) {
		concentration, err := reaction.ParseConcentration(input.Concentration)
		if err != nil {
			return nil, ReactionSimulateResult{}, userError(err)
		}
		ctrl, err := session.NewController("mcp-"+uuid.NewString(), s.session)
		if err != nil {
			return nil, ReactionSimulateResult{}, fmt.Errorf("start simulation: %w", err)
		}
		for _, id := range []string{input.FirstID, input.SecondID} {
			substance, err := s.catalog.Get(strings.TrimSpace(id))
			if err != nil {
				return nil, ReactionSimulateResult{}, userError(err)
			}
			if err := ctrl.Add(substance); err != nil {
				return nil, ReactionSimulateResult{}, userError(err)
			}
		}
		ctrl.SetOptions(reaction.Options{Concentration: concentration, UseIndicator: input.UseIndicator})

		st, err := ctrl.Simulate(ctx)
		if err != nil {
			return nil, ReactionSimulateResult{}, userError(err)
		}
		out := ReactionSimulateResult{
			Phase:     string(st.Phase),
			Reactants: make([]string, 0, len(st.Selection)),
			Result:    st.Result,
		}
		for _, substance := range st.Selection {
			out.Reactants = append(out.Reactants, substance.ID)
		}
		if st.Failure != nil {
			out.ErrorCode = string(st.Failure.Code)
			out.Message = st.Failure.Message(i18ncatalog.BaseLocale)
		}
		return nil, out, nil
	}
}

// userError replaces err with its localized message so tool errors never
// carry internal causes.
func userError(err error) error {
	return fmt.Errorf("%s: %s", apperrors.CodeOf(err), apperrors.UserMessage(i18ncatalog.BaseLocale, err))
}
