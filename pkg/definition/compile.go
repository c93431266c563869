package definition

import (
	"net/http"
	"strings"

	"github.com/aretw0/ussdflow/pkg/condition"
	"github.com/aretw0/ussdflow/pkg/domain"
)

// Defaults applied when a document leaves a value unset.
const (
	DefaultTimeoutMs            = 10000
	DefaultRetryAttempts        = 2
	DefaultSessionTimeout       = 60
	DefaultSessionMaxInactivity = 30
	DefaultErrorMessage         = "Erreur lors de l'opération"
)

// validationAliases maps names emitted by older generators to canonical types.
var validationAliases = map[string]domain.ValidationType{
	"NUMBER": domain.ValidateNumeric,
	"AMOUNT": domain.ValidateDecimal,
}

var allowedMethods = map[string]bool{
	http.MethodGet:    true,
	http.MethodPost:   true,
	http.MethodPut:    true,
	http.MethodPatch:  true,
	http.MethodDelete: true,
}

// Compile checks every invariant of doc and builds the immutable definition.
// All violations are reported together in a *domain.DefinitionError.
func Compile(doc *Document) (*domain.Definition, error) {
	errs := &domain.DefinitionError{}

	if strings.TrimSpace(doc.ServiceCode) == "" {
		errs.Add("serviceCode is required")
	}
	if len(doc.States) == 0 {
		errs.Add("at least one state is required")
	}

	meta := domain.Definition{
		ServiceCode: doc.ServiceCode,
		ServiceName: doc.ServiceName,
		USSDCode:    strings.TrimSpace(doc.USSDCode),
		Version:     doc.Version,
		Description: doc.Description,
		API:         compileAPIConfig(doc.APIConfig, errs),
		Session:     compileSessionConfig(doc.SessionConfig),
	}

	ids := make(map[string]bool, len(doc.States))
	for i, s := range doc.States {
		if s.ID == "" {
			errs.Add("states[%d]: id is required", i)
			continue
		}
		if s.ID == domain.EndStateID {
			errs.Add("state %q: id is reserved", s.ID)
		}
		if ids[s.ID] {
			errs.Add("state %q: duplicate id", s.ID)
		}
		ids[s.ID] = true
	}

	var initials []string
	states := make([]domain.State, 0, len(doc.States))
	for _, sd := range doc.States {
		if sd.ID == "" {
			continue
		}
		if sd.IsInitial {
			initials = append(initials, sd.ID)
		}
		if st := compileState(sd, ids, errs); st != nil {
			states = append(states, st)
		}
	}

	switch len(initials) {
	case 0:
		if len(doc.States) > 0 {
			errs.Add("exactly one state must be initial, found none")
		}
	case 1:
	default:
		errs.Add("exactly one state must be initial, found %d: %s", len(initials), strings.Join(initials, ", "))
	}

	if err := errs.OrNil(); err != nil {
		return nil, err
	}
	return domain.NewDefinition(meta, states), nil
}

func compileAPIConfig(d APIConfigDoc, errs *domain.DefinitionError) domain.APIConfig {
	cfg := domain.APIConfig{
		BaseURL:       strings.TrimSpace(d.BaseURL),
		TimeoutMs:     d.Timeout,
		RetryAttempts: DefaultRetryAttempts,
	}
	if cfg.TimeoutMs <= 0 {
		cfg.TimeoutMs = DefaultTimeoutMs
	}
	if d.RetryAttempts != nil {
		cfg.RetryAttempts = *d.RetryAttempts
		if cfg.RetryAttempts < 0 {
			errs.Add("apiConfig.retryAttempts must not be negative")
		}
	}

	auth := domain.Authentication{
		Type:       domain.AuthenticationType(strings.ToUpper(strings.TrimSpace(d.Authentication.Type))),
		Token:      d.Authentication.Token,
		HeaderName: d.Authentication.HeaderName,
		APIKey:     d.Authentication.APIKey,
		Username:   d.Authentication.Username,
		Password:   d.Authentication.Password,
	}
	switch auth.Type {
	case "":
		auth.Type = domain.AuthNone
	case domain.AuthNone, domain.AuthBasic:
	case domain.AuthBearer:
		if auth.Token == "" {
			errs.Add("apiConfig.authentication: BEARER requires token")
		}
	case domain.AuthAPIKey:
		if auth.APIKey == "" {
			errs.Add("apiConfig.authentication: API_KEY requires apiKey")
		}
	default:
		errs.Add("apiConfig.authentication: unknown type %q", d.Authentication.Type)
	}
	cfg.Authentication = auth
	return cfg
}

func compileSessionConfig(d SessionConfigDoc) domain.SessionConfig {
	cfg := domain.SessionConfig{
		TimeoutSeconds:       d.TimeoutSeconds,
		MaxInactivitySeconds: d.MaxInactivitySeconds,
	}
	if cfg.TimeoutSeconds <= 0 {
		cfg.TimeoutSeconds = DefaultSessionTimeout
	}
	if cfg.MaxInactivitySeconds <= 0 {
		cfg.MaxInactivitySeconds = DefaultSessionMaxInactivity
	}
	return cfg
}

func compileState(sd StateDoc, ids map[string]bool, errs *domain.DefinitionError) domain.State {
	base := domain.StateBase{
		ID:      sd.ID,
		Name:    sd.Name,
		Message: sd.Message,
		Initial: sd.IsInitial,
	}
	base.Transitions = compileTransitions(sd, ids, errs)

	kind := domain.StateType(strings.ToUpper(strings.TrimSpace(sd.Type)))
	if kind != domain.StateProcessing && strings.TrimSpace(sd.Message) == "" {
		errs.Add("state %q: message is required", sd.ID)
	}
	if kind != domain.StateEnd && len(sd.Transitions) == 0 {
		errs.Add("state %q: %s state needs at least one transition", sd.ID, kind)
	}

	switch kind {
	case domain.StateInput:
		if strings.TrimSpace(sd.StoreAs) == "" {
			errs.Add("state %q: INPUT state requires storeAs", sd.ID)
		}
		return &domain.InputState{
			StateBase:  base,
			StoreAs:    sd.StoreAs,
			Validation: compileValidation(sd.ID, sd.Validation, errs),
		}
	case domain.StateMenu:
		return &domain.MenuState{StateBase: base}
	case domain.StateProcessing:
		if sd.Action == nil {
			errs.Add("state %q: PROCESSING state requires an action", sd.ID)
			return nil
		}
		return &domain.ProcessingState{StateBase: base, Action: compileAction(sd.ID, *sd.Action, errs)}
	case domain.StateEnd:
		if len(sd.Transitions) > 0 {
			errs.Add("state %q: END state must not declare transitions", sd.ID)
		}
		return &domain.EndState{StateBase: base}
	default:
		errs.Add("state %q: unknown type %q", sd.ID, sd.Type)
		return nil
	}
}

func compileTransitions(sd StateDoc, ids map[string]bool, errs *domain.DefinitionError) []domain.Transition {
	out := make([]domain.Transition, 0, len(sd.Transitions))
	catchAll := -1
	for i, td := range sd.Transitions {
		t := domain.Transition{
			Input:        strings.TrimSpace(td.Input),
			RawCondition: strings.TrimSpace(td.Condition),
			NextState:    strings.TrimSpace(td.NextState),
			Message:      td.Message,
		}
		if t.RawCondition != "" {
			expr, err := condition.Parse(t.RawCondition)
			if err != nil {
				errs.Add("state %q transition %d: %v", sd.ID, i, err)
			}
			t.Condition = expr
		}
		switch {
		case t.NextState == "":
			errs.Add("state %q transition %d: nextState is required", sd.ID, i)
		case t.NextState != domain.EndStateID && !ids[t.NextState]:
			errs.Add("state %q transition %d: nextState %q does not exist", sd.ID, i, t.NextState)
		}
		if t.IsCatchAll() && t.RawCondition == "" && catchAll < 0 {
			catchAll = i
		}
		out = append(out, t)
	}
	if catchAll >= 0 && catchAll != len(out)-1 {
		errs.Add("state %q transition %d: unconditional wildcard must be the last transition", sd.ID, catchAll)
	}
	return out
}

func compileValidation(stateID string, vd *ValidationDoc, errs *domain.DefinitionError) domain.ValidationRule {
	if vd == nil {
		errs.Add("state %q: INPUT state requires validation", stateID)
		return domain.ValidationRule{Type: domain.ValidateText}
	}
	name := strings.ToUpper(strings.TrimSpace(vd.Type))
	typ := domain.ValidationType(name)
	if alias, ok := validationAliases[name]; ok {
		typ = alias
	}
	if typ == "" {
		typ = domain.ValidateText
	}
	if !typ.Valid() {
		errs.Add("state %q: unknown validation type %q", stateID, vd.Type)
	}
	if vd.MinLength != nil && *vd.MinLength < 0 {
		errs.Add("state %q: minLength must not be negative", stateID)
	}
	if vd.MinLength != nil && vd.MaxLength != nil && *vd.MinLength > *vd.MaxLength {
		errs.Add("state %q: minLength %d exceeds maxLength %d", stateID, *vd.MinLength, *vd.MaxLength)
	}
	return domain.ValidationRule{Type: typ, MinLength: vd.MinLength, MaxLength: vd.MaxLength}
}

func compileAction(stateID string, ad ActionDoc, errs *domain.DefinitionError) domain.Action {
	typ := domain.ActionType(strings.ToUpper(strings.TrimSpace(ad.Type)))
	if typ == "" {
		typ = domain.ActionAPICall
	}
	if typ != domain.ActionAPICall {
		errs.Add("state %q: unsupported action type %q", stateID, ad.Type)
	}

	method := strings.ToUpper(strings.TrimSpace(ad.Method))
	if method == "" {
		method = http.MethodGet
	}
	if !allowedMethods[method] {
		errs.Add("state %q: unsupported method %q", stateID, ad.Method)
	}
	if strings.TrimSpace(ad.Endpoint) == "" {
		errs.Add("state %q: action endpoint is required", stateID)
	}
	if ad.RetryAttempts != nil && *ad.RetryAttempts < 0 {
		errs.Add("state %q: action retryAttempts must not be negative", stateID)
	}

	act := domain.Action{
		Type:          typ,
		Method:        method,
		Endpoint:      strings.TrimSpace(ad.Endpoint),
		Headers:       ad.Headers,
		Body:          ad.Body,
		TimeoutMs:     ad.Timeout,
		RetryAttempts: ad.RetryAttempts,
	}
	if ad.OnSuccess != nil {
		act.OnSuccess = domain.ActionResult{ResponseMapping: ad.OnSuccess.ResponseMapping, Message: ad.OnSuccess.Message}
	}
	act.OnError.Message = DefaultErrorMessage
	if ad.OnError != nil && ad.OnError.Message != "" {
		act.OnError.Message = ad.OnError.Message
	}
	return act
}
