package service

import (
	"fmt"
	"strings"

	"github.com/jimmy12-d/rean-ai/internal/engine"
	"github.com/jimmy12-d/rean-ai/internal/model"
)

const defaultMaxTokens = 2048

// Every supported family uses ChatML-style turn markers, so one stop set
// covers the table.
var stopMarkers = []string{"<|im_end|>", "<|endoftext|>", "</s>", "<|im_start|>"}

// PromptSpec is one row of the prompt table: a template plus the sampling
// parameters tuned for that (family, intent) pair. Templates interpolate
// {{context}} and {{query}} verbatim.
type PromptSpec struct {
	Template      string
	Temperature   float32
	RepeatPenalty float32
	TopP          float32
	TopK          int
}

// Prompt is a fully rendered prompt with its engine parameters.
type Prompt struct {
	Text   string
	Params engine.Params
}

type promptKey struct {
	family string
	intent model.Intent
}

// Composer renders prompts from the (family, intent) table. Adding a model
// family or intent means adding table rows, not code paths.
type Composer struct {
	table           map[promptKey]PromptSpec
	maxContextChars int
}

func NewComposer(maxContextChars int) *Composer {
	return &Composer{table: defaultPromptTable(), maxContextChars: maxContextChars}
}

// Compose renders the prompt for the active model family and classified
// intent. An unknown family is a configuration error.
func (c *Composer) Compose(family string, intent model.Intent, conceptText, exerciseText, userQuery string) (Prompt, error) {
	spec, ok := c.table[promptKey{family: family, intent: intent}]
	if !ok {
		return Prompt{}, fmt.Errorf("no prompt template for model family %q intent %s", family, intent)
	}
	contextText := conceptText + "\n" + exerciseText
	if c.maxContextChars > 0 {
		contextText = truncateRunes(contextText, c.maxContextChars)
	}
	text := strings.NewReplacer(
		"{{context}}", contextText,
		"{{query}}", userQuery,
	).Replace(spec.Template)
	return Prompt{
		Text: text,
		Params: engine.Params{
			MaxTokens:     defaultMaxTokens,
			Temperature:   spec.Temperature,
			RepeatPenalty: spec.RepeatPenalty,
			TopP:          spec.TopP,
			TopK:          spec.TopK,
			Stop:          stopMarkers,
		},
	}, nil
}

func truncateRunes(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

func defaultPromptTable() map[promptKey]PromptSpec {
	return map[promptKey]PromptSpec{
		// Qwen follows instructions well, so the rules live in the system turn.
		{model.FamilyQwen, model.IntentSolve}: {
			Temperature:   0.1,
			RepeatPenalty: 1.1,
			Template: `<|im_start|>system
You are an expert Khmer Grade 12 Tutor.
Your goal is to read the student’s question and provide an accurate solution.
Instructions:
1. Answer strictly in Khmer.
2. Use the provided [Context] to ensure accuracy.
3. If the problem involves calculation, follow this structure:
   - State the formula (តាមរូបមន្ត).
   - List given variables (ដោយ).
   - Perform calculation (យើងបាន).
   - State the final answer (ដូចនេះ).
4. If it is a conceptual question, explain clearly and concisely.
<|im_end|>
<|im_start|>user
[Context / ឯកសារយោង]
{{context}}

[Question / សំណួរ]
{{query}}
<|im_end|>
<|im_start|>assistant
`,
		},
		{model.FamilyQwen, model.IntentGenerate}: {
			Temperature:   0.7,
			RepeatPenalty: 1.1,
			Template: `<|im_start|>system
You are a Khmer Grade 12 Teacher.
Your goal is to create new exercises or explain concepts clearly based on the user's request.
Instructions:
1. Answer strictly in Khmer.
2. Be creative and educational.
3. If creating an exercise, Do not provide the solution, only when user asks for it.
<|im_end|>
<|im_start|>user
[Context / ឯកសារយោង]
{{context}}

[Question / សំណួរ]
{{query}}
<|im_end|>
<|im_start|>assistant
`,
		},
		// SeaLLM was not tuned for long system prompts, so the retrieval
		// instruction goes into the first user turn instead.
		{model.FamilySeaLLM, model.IntentSolve}: {
			Temperature:   0.15,
			RepeatPenalty: 1.3,
			TopP:          0.9,
			TopK:          40,
			Template: `<|im_start|>system
អ្នកជាជំនួយការដែលមានប្រយោជន៍ និងត្រូវតែធ្វើតាមការណែនាំយ៉ាងតឹងរ៉ឹង។ អ្នកមិនត្រូវប្រើចំណេះដឹងខាងក្រៅ ឬសន្និដ្ឋានផ្ទាល់ខ្លួនឡើយ។ ប្រើតែព័ត៌មានពីឯកសារយោងប៉ុណ្ណោះ។</s><|im_start|>user
អ្នកជាគ្រូបង្រៀនថ្នាក់ទី១២ ជំនាញរូបវិទ្យា គណិតវិទ្យា ជីវវិទ្យា និងប្រវត្តិសាស្ត្រ។

ឯកសារយោង៖
{{context}}

សំណួរ៖ {{query}}

សេចក្តីណែនាំ៖
- សូមឆ្លើយសំណួរដោយប្រើតែព័ត៌មានពីឯកសារយោងខាងលើប៉ុណ្ណោះ។ កុំបន្ថែមព័ត៌មានខាងក្រៅ ឬសន្និដ្ឋានផ្ទាល់ខ្លួន។ បើឯកសារយោងមិនមានព័ត៌មានគ្រប់គ្រាន់ សូមឆ្លើយថា "ព័ត៌មានមិនគ្រប់គ្រាន់នៅក្នុងឯកសារយោង។"
- ចម្លើយត្រូវតែជាភាសាខ្មែរ។
- មុននឹងឆ្លើយ សូមគិតជាជំហាន៖ ១. រកព័ត៌មានពាក់ព័ន្ធពីឯកសារយោង។ ២. បញ្ជាក់ថាអ្នកបានយកពីឯកសារយោងណា។ ៣. បន្ទាប់មកឆ្លើយ។
- សម្រាប់គណិតវិទ្យា៖ បង្ហាញរូបមន្ត → ដោះស្រាយជាជំហាន → គណនា → ចម្លើយចុងក្រោយ។ ប្រើតែទិន្នន័យពីឯកសារយោង។
- សម្រាប់គំនិត ឬពន្យល់៖ ប្រើចំណុចសំខាន់ៗពីឯកសារយោង និងបញ្ជាក់ប្រភពពីឯកសារយោង។

ត្រូវតែធ្វើតាមសេចក្តីណែនាំនេះយ៉ាងតឹងរ៉ឹង បើមិនដូច្នោះទេ ចម្លើយមិនត្រឹមត្រូវ។</s><|im_start|>assistant
`,
		},
		{model.FamilySeaLLM, model.IntentGenerate}: {
			Temperature:   0.65,
			RepeatPenalty: 1.15,
			TopP:          0.9,
			TopK:          40,
			Template: `<|im_start|>system
You are a helpful assistant.</s><|im_start|>user
អ្នកជាគ្រូបង្រៀនថ្នាក់ទី១២។ សូមបង្កើតលំហាត់ ឬពន្យល់គំនិតដូចខាងក្រោម៖

{{query}}

សេចក្តីណែនាំ៖ ឆ្លើយជាភាសាខ្មែរ។ ច្នៃប្រឌិតនិងមានលក្ខណៈអប់រំ។</s><|im_start|>assistant
`,
		},
	}
}
