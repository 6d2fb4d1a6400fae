package questiongen

import (
	"fmt"
	"strconv"

	"github.com/abhisek/quizgen/internal/llm"
)

// exampleInput is the worked example shown before every request.
const exampleInput = `{"number_of_questions": 3, "text": "On 19 March 1882, construction of the Sagrada Família began under architect Francisco de Paula del Villar. In 1883, when Villar resigned, Gaudí took over as chief architect, transforming the project with his architectural and engineering style, combining Gothic and curvilinear Art Nouveau forms. Gaudí devoted the remainder of his life to the project, and he is buried in the crypt. At the time of his death in 1926, less than a quarter of the project was complete."}`

// exampleOutputs holds the answer payload for exampleInput, per type.
var exampleOutputs = map[QuestionType]string{
	ShortAnswer: `[{"question": "On what date did construction start?", "answers": {"A": "19 March 1882"}}, ` +
		`{"question": "Who was the original architect of the basilica?", "answers": {"A": "Francisco de Paula del Villar"}}, ` +
		`{"question": "How much of the project was completed when Gaudi died?", "answers": {"A": "Less than a quarter"}}]`,

	TrueFalse: `[{"question": "Construction started on 19 March 1882", "answers": {"A": "True"}}, ` +
		`{"question": "The original architect was Antoni Gaudi", "answers": {"A": "False"}}, ` +
		`{"question": "Over half of the basilica was finished when Gaudi died.", "answers": {"A": "False"}}]`,

	MultipleChoice: `[{"question": "On what date did construction start?", "answers": {"A": "1882", "B": "1893", "C": "1926", "D": "1918"}, "correct": "A"}, ` +
		`{"question": "Who was the original architect of the basilica?", "answers": {"A": "Antoni Gaudi", "B": "Francsico de Goya", "C": "Francisco de Paula del Villar", "D": "Louis Sullivan"}, "correct": "C"}, ` +
		`{"question": "How much of the basilica was finished when Gaudi died?", "answers": {"A": "Over a third", "B": "Nearly all of it", "C": "Around half", "D": "Less than a quarter"}, "correct": "D"}]`,
}

const trueFalseInstruction = "The answers given MUST either be the string 'True' or the string 'False'."

const repairInstruction = "Please convert any given input into valid JSON. " +
	"Do not return anything else except properly formatted JSON based on the input."

// BuildMessages returns the few-shot prompt for generating count questions
// of type qtype from sourceText. The output depends only on its inputs.
//
// sourceText is placed into the request payload verbatim; callers sanitize
// it beforehand (see SanitizeSource).
func BuildMessages(qtype QuestionType, count int, sourceText string) []llm.Message {
	label := qtype.Label()

	msgs := []llm.Message{
		{Role: llm.RoleSystem, Content: fmt.Sprintf(
			"Generate %s questions from text in JSON format. Do not return normal text, just JSON. "+
				"The response MUST contain exactly %d questions. "+
				"For example, the following is an example of the input JSON:", label, count)},
		{Role: llm.RoleSystem, Content: exampleInput},
		{Role: llm.RoleSystem, Content: fmt.Sprintf(
			"Here is an example of the output JSON containing the %s questions. "+
				"The response MUST follow this structure:", label)},
		{Role: llm.RoleSystem, Content: exampleOutputs[qtype]},
	}

	if qtype == TrueFalse {
		msgs = append(msgs, llm.Message{Role: llm.RoleSystem, Content: trueFalseInstruction})
	}

	msgs = append(msgs, llm.Message{
		Role:    llm.RoleUser,
		Content: `{"number_of_questions": ` + strconv.Itoa(count) + `,  "text": "` + sourceText + `"}`,
	})

	return msgs
}

// BuildRepairMessages returns the prompt asking the model to turn a
// malformed completion into valid JSON.
func BuildRepairMessages(completion string) []llm.Message {
	return []llm.Message{
		{Role: llm.RoleSystem, Content: repairInstruction},
		{Role: llm.RoleUser, Content: completion},
	}
}
