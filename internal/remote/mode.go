package remote

import "encoding/json"

// Mode selects what the remote service is asked to return.
// It is either Structured or Freeform.
type Mode interface {
	mode()
}

// Structured asks for a JSON array of strings constrained by Schema.
type Structured struct {
	Schema json.RawMessage
}

// Freeform asks for unconstrained descriptive text.
type Freeform struct{}

func (Structured) mode() {}
func (Freeform) mode()   {}

// TextChunksSchema constrains responses to an array of read-aloud strings.
var TextChunksSchema = json.RawMessage(`{
  "type": "array",
  "description": "A list of text chunks read from the image, formatted for read-aloud.",
  "items": {"type": "string"}
}`)

// TextChunks is the structured mode used for capture commands.
func TextChunks() Structured {
	return Structured{Schema: TextChunksSchema}
}

// StructuredDirectivePrefix wraps a user request for structured capture.
const StructuredDirectivePrefix = "Analyze the text in this image. Based on the following user request, " +
	"return a strict JSON array of strings, where each string is a complete sentence or phrase " +
	"that should be read out loud. DO NOT include any extra text or formatting outside of the " +
	"JSON array. User Request: "

// DefaultCaptureRequest is the user request sent for the capture command.
const DefaultCaptureRequest = "Read all of the text in this image in natural reading order."

// DefaultDescribeDirective is the prompt sent for the describe command.
const DefaultDescribeDirective = "Describe this scene for a person who cannot see it. " +
	"Mention any visible text, people, objects and hazards in a few short sentences."

// StructuredDirective returns the full directive for a structured request.
func StructuredDirective(request string) string {
	return StructuredDirectivePrefix + request
}
