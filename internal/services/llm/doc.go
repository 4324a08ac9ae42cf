// Package llm provides an OpenRouter-compatible chat client used by the text
// stages of book production (skeleton, narrative audit, visual plan, prompts).
//
// Requests ask for a JSON object response. DecodeLLMJSON tolerates code fences
// and surrounding prose. Each call makes exactly one HTTP request and returns
// an error marked services.ErrTransient (HTTP 408/429/5xx, transport failures,
// timeouts, empty completions) or services.ErrPermanent (other HTTP statuses,
// refusals, undecodable payloads), so the caller's retry policy can decide.
package llm
