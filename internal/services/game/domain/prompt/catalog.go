package prompt

var faceTexts = [FaceCount]string{
	"Who founded this place, and what did they leave behind?",
	"Describe a landmark everyone here can see from anywhere.",
	"What do the people here fear most?",
	"What is celebrated here every year?",
	"Name a rule that everyone follows without knowing why.",
	"Who is the oldest person here, and what do they remember?",
	"What sound is always present here?",
	"What was lost here long ago?",
	"Describe the way strangers are greeted.",
	"What is traded here that cannot be found anywhere else?",
	"Which place here is avoided, and why?",
	"What small thing does everyone here carry?",
}

var numberedTexts = map[int][OrdersPerValue]string{
	2: {
		"A stranger arrives with news. What is it?",
		"The stranger asks for something. Who answers?",
		"The stranger's secret comes out.",
		"The stranger leaves. What stays behind?",
	},
	3: {
		"Something breaks. What is it?",
		"Someone tries to repair it and fails.",
		"The breakage reveals something hidden.",
		"It is repaired, but not the way it was.",
	},
	4: {
		"Two people argue in public. About what?",
		"Others take sides.",
		"The argument turns into something worse.",
		"The argument is settled. At what cost?",
	},
	5: {
		"The weather turns. Describe it.",
		"The weather keeps someone from their work.",
		"The weather uncovers something.",
		"The weather clears. What has changed?",
	},
	6: {
		"A child asks a question nobody can answer.",
		"Someone goes looking for the answer.",
		"The answer is found in an unexpected place.",
		"The answer changes how one person lives.",
	},
	7: {
		"An old promise is remembered.",
		"Someone tries to keep it.",
		"Keeping it means breaking another.",
		"The promise is fulfilled or abandoned.",
	},
	8: {
		"Food runs short. Why?",
		"Someone hoards. Who finds out?",
		"A feast is planned anyway.",
		"The feast happens. Who is missing?",
	},
	9: {
		"A message arrives from far away.",
		"The message is misread.",
		"The mistake is discovered.",
		"A reply is sent. What does it say?",
	},
}

// TerminalText is shown when the terminal value is drawn.
const TerminalText = "The cycle turns. Choose one question to carry into the next."

// Text returns the prompt text for ref, or the empty string for an unknown
// slot.
func Text(ref Ref) string {
	switch {
	case ref.Kind == KindFace && ref.FaceID >= 1 && ref.FaceID <= FaceCount:
		return faceTexts[ref.FaceID-1]
	case ref.IsTerminal():
		return TerminalText
	case ref.Kind == KindNumbered:
		texts, ok := numberedTexts[ref.Value]
		if !ok || ref.Order < 1 || ref.Order > OrdersPerValue {
			return ""
		}
		return texts[ref.Order-1]
	}
	return ""
}
