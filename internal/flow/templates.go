package flow

import "strings"

// defaultLocale is used when language matching fails and as the fallback for
// any missing translation.
const defaultLocale = "en"

// totalQuestionsHint is the approximate assessment length shown in the
// progress indicator. The backend decides the real number per age band.
const totalQuestionsHint = 12

// render resolves a template for a locale, falling back to the default
// locale, and substitutes {placeholder} arguments.
func render(table map[string]string, locale string, args map[string]string) string {
	msg, ok := table[locale]
	if !ok {
		msg = table[defaultLocale]
	}
	for k, v := range args {
		msg = strings.ReplaceAll(msg, "{"+k+"}", v)
	}
	return msg
}

// localePhrase maps a selectable language phrase to its locale code. Slice
// order is the substring-scan priority.
type localePhrase struct {
	phrase string
	code   string
}

var localePhrases = []localePhrase{
	{"english", "en"},
	{"hindi", "hi"},
	{"marathi", "mr"},
}

// matchLocale resolves free-form language input to a locale code: exact
// match first, then substring containment, then the default locale.
func matchLocale(text string) string {
	t := strings.ToLower(strings.TrimSpace(text))
	for _, lp := range localePhrases {
		if t == lp.phrase {
			return lp.code
		}
	}
	for _, lp := range localePhrases {
		if strings.Contains(t, lp.phrase) {
			return lp.code
		}
	}
	return defaultLocale
}

// answerPhrase maps a localized answer phrase to its normalized answer code.
type answerPhrase struct {
	phrase string
	code   string
}

var answerPhrases = []answerPhrase{
	// English
	{"yes", "yes"},
	{"sometimes", "sometimes"},
	{"no", "no"},
	{"not sure", "not_sure"},
	// Hindi
	{"हां", "yes"},
	{"कभी-कभी", "sometimes"},
	{"नहीं", "no"},
	{"निश्चित नहीं", "not_sure"},
	// Marathi
	{"होय", "yes"},
	{"कधीकधी", "sometimes"},
	{"नाही", "no"},
	{"खात्री नाही", "not_sure"},
}

// matchAnswer resolves user input to an answer code: exact match first, then
// a bidirectional substring scan in table order. Unmatched input is invalid
// and should be re-prompted, never guessed.
func matchAnswer(text string) (string, bool) {
	t := strings.ToLower(strings.TrimSpace(text))
	if t == "" {
		return "", false
	}
	for _, ap := range answerPhrases {
		if t == ap.phrase {
			return ap.code, true
		}
	}
	for _, ap := range answerPhrases {
		if strings.Contains(t, ap.phrase) || strings.Contains(ap.phrase, t) {
			return ap.code, true
		}
	}
	return "", false
}

// affirmativePhrases accept the premature-birth question.
var affirmativePhrases = []string{"yes", "y", "हां", "होय"}

func isAffirmative(text string) bool {
	t := strings.ToLower(strings.TrimSpace(text))
	for _, phrase := range affirmativePhrases {
		if t == phrase {
			return true
		}
	}
	return false
}

var restartPhrases = []string{"restart", "start over", "new"}

var helpPhrases = []string{"help", "info"}

func matchesPhrase(text string, phrases []string) bool {
	for _, p := range phrases {
		if text == p {
			return true
		}
	}
	return false
}

var languageButtons = []string{"English", "Hindi", "Marathi"}

var yesNoButtons = []string{"Yes", "No"}

var answerButtons = map[string][]string{
	"en": {"Yes", "Sometimes", "No", "Not Sure"},
	"hi": {"हां", "कभी-कभी", "नहीं", "निश्चित नहीं"},
	"mr": {"होय", "कधीकधी", "नाही", "खात्री नाही"},
}

func answerButtonsFor(locale string) []string {
	if buttons, ok := answerButtons[locale]; ok {
		return buttons
	}
	return answerButtons[defaultLocale]
}

var welcomeMessages = map[string]string{
	"en": "Welcome to BrainyTots Developmental Assessment!\n\nI'll help you track your child's development with a quick 5-minute assessment. This will help you understand where your child is in their developmental journey.\n\nPlease select your preferred language:",
	"hi": "BrainyTots में आपका स्वागत है!\n\nमैं आपके बच्चे के विकास को ट्रैक करने में मदद करूंगा। यह आपको यह समझने में मदद करेगा कि आपका बच्चा अपनी विकास यात्रा में कहां है।\n\nकृपया अपनी पसंदीदा भाषा चुनें:",
	"mr": "BrainyTots मध्ये आपले स्वागत आहे!\n\nमी तुमच्या मुलाच्या विकासाचा मागोवा घेण्यास मदत करेन. हे तुम्हाला समजण्यास मदत करेल की तुमचे मूल त्यांच्या विकासाच्या प्रवासात कुठे आहे.\n\nकृपया तुमची पसंतीची भाषा निवडा:",
}

var askNameMessages = map[string]string{
	"en": "Great! What's your child's name?",
	"hi": "बढ़िया! आपके बच्चे का नाम क्या है?",
	"mr": "छान! तुमच्या मुलाचे नाव काय आहे?",
}

var askDOBMessages = map[string]string{
	"en": "When was {name} born? Please send in DD/MM/YYYY format.\n\nExample: 15/03/2024",
	"hi": "{name} का जन्म कब हुआ था? कृपया DD/MM/YYYY प्रारूप में भेजें।\n\nउदाहरण: 15/03/2024",
	"mr": "{name} चा जन्म कधी झाला? कृपया DD/MM/YYYY स्वरूपात पाठवा.\n\nउदाहरण: 15/03/2024",
}

var invalidDOBMessages = map[string]string{
	"en": "I couldn't understand that date format. Please send the date in DD/MM/YYYY format.\n\nExample: 15/03/2024",
	"hi": "मैं उस तारीख प्रारूप को समझ नहीं सका। कृपया DD/MM/YYYY प्रारूप में तारीख भेजें।\n\nउदाहरण: 15/03/2024",
	"mr": "मला ते तारीख स्वरूप समजू शकले नाही. कृपया DD/MM/YYYY स्वरूपात तारीख पाठवा.\n\nउदाहरण: 15/03/2024",
}

var askGestationalMessages = map[string]string{
	"en": "Was {name} born prematurely (before 37 weeks of pregnancy)?",
	"hi": "क्या {name} समय से पहले (गर्भावस्था के 37 सप्ताह से पहले) पैदा हुआ था?",
	"mr": "{name} वेळेपूर्वी (गर्भधारणेच्या 37 आठवड्यांपूर्वी) जन्माला आला होता का?",
}

var askGestationalWeeksMessages = map[string]string{
	"en": "At how many weeks was {name} born? (Usually between 24-36 weeks for premature babies)\n\nExample: 34",
	"hi": "{name} कितने सप्ताह में पैदा हुआ था? (आमतौर पर समय से पहले जन्मे बच्चों के लिए 24-36 सप्ताह)\n\nउदाहरण: 34",
	"mr": "{name} किती आठवड्यांनी जन्माला आला? (सामान्यतः वेळेपूर्वी जन्मलेल्या मुलांसाठी 24-36 आठवडे)\n\nउदाहरण: 34",
}

var invalidGestationalWeeksMessages = map[string]string{
	"en": "Please enter a valid number of weeks (between 24-42).\n\nExample: 34",
	"hi": "कृपया सप्ताहों की एक वैध संख्या दर्ज करें (24-42 के बीच)।\n\nउदाहरण: 34",
	"mr": "कृपया वैध आठवड्यांची संख्या प्रविष्ट करा (24-42 च्या दरम्यान).\n\nउदाहरण: 34",
}

var startingAssessmentMessages = map[string]string{
	"en": "Perfect! Starting your developmental assessment for {name}...\n\nThis will take about 5 minutes and cover 5 key developmental areas.",
	"hi": "बिल्कुल सही! {name} के लिए आपका विकास मूल्यांकन शुरू हो रहा है...\n\nइसमें लगभग 5 मिनट लगेंगे और 5 मुख्य विकास क्षेत्रों को कवर किया जाएगा।",
	"mr": "परफेक्ट! {name} साठी तुमचे विकासात्मक मूल्यांकन सुरू होत आहे...\n\nयास सुमारे 5 मिनिटे लागतील आणि 5 मुख्य विकास क्षेत्रे समाविष्ट होतील.",
}

var questionProgressMessages = map[string]string{
	"en": "Question {current} of ~{total}",
	"hi": "प्रश्न {current} में से ~{total}",
	"mr": "प्रश्न {current} पैकी ~{total}",
}

var useButtonsMessages = map[string]string{
	"en": "Please select one of the options using the buttons.",
	"hi": "कृपया बटन का उपयोग करके विकल्पों में से एक चुनें।",
	"mr": "कृपया बटणे वापरून पर्यायांपैकी एक निवडा.",
}

var assessmentCompleteMessages = map[string]string{
	"en": "Assessment complete for {name}!\n\nHere's a quick summary:\n- Age: {age_months} months{corrected_note}\n- Questions answered: {total_questions}\n- Overall: {overall_status}\n\nView your detailed results and personalized recommendations here:\n{results_url}\n\nThe report includes domain scores, activities, and toy recommendations tailored for {name}!",
	"hi": "{name} के लिए मूल्यांकन पूर्ण हुआ!\n\nयहाँ एक त्वरित सारांश है:\n- आयु: {age_months} महीने{corrected_note}\n- उत्तर दिए गए प्रश्न: {total_questions}\n- समग्र: {overall_status}\n\nयहां अपने विस्तृत परिणाम और व्यक्तिगत सिफारिशें देखें:\n{results_url}\n\nरिपोर्ट में {name} के लिए अनुकूलित डोमेन स्कोर, गतिविधियाँ और खिलौने की सिफारिशें शामिल हैं!",
	"mr": "{name} साठी मूल्यांकन पूर्ण झाले!\n\nयेथे एक जलद सारांश आहे:\n- वय: {age_months} महिने{corrected_note}\n- उत्तर दिलेले प्रश्न: {total_questions}\n- एकूण: {overall_status}\n\nतुमचे तपशीलवार निकाल आणि वैयक्तिक शिफारशी येथे पहा:\n{results_url}\n\nअहवालात {name} साठी अनुकूलित डोमेन स्कोअर, क्रियाकलाप आणि खेळण्यांच्या शिफारशी समाविष्ट आहेत!",
}

var correctedAgeNotes = map[string]string{
	"en": " (corrected for prematurity)",
	"hi": " (समयपूर्वता के लिए समायोजित)",
	"mr": " (वेळेपूर्वतेसाठी समायोजित)",
}

var alreadyCompleteMessages = map[string]string{
	"en": "Your assessment is already complete! View results here:\n{results_url}\n\nType 'restart' to start a new assessment.",
	"hi": "आपका मूल्यांकन पहले ही पूरा हो चुका है! परिणाम यहां देखें:\n{results_url}\n\nनया मूल्यांकन शुरू करने के लिए 'restart' टाइप करें।",
	"mr": "तुमचे मूल्यांकन आधीच पूर्ण झाले आहे! निकाल येथे पहा:\n{results_url}\n\nनवीन मूल्यांकन सुरू करण्यासाठी 'restart' टाइप करा.",
}

var errorMessages = map[string]string{
	"en": "I'm sorry, I encountered an error. Please try again or type 'restart' to start over.",
	"hi": "मुझे खेद है, मुझे एक त्रुटि का सामना करना पड़ा। कृपया पुनः प्रयास करें या फिर से शुरू करने के लिए 'restart' टाइप करें।",
	"mr": "मला माफ करा, मला एक त्रुटी आली. कृपया पुन्हा प्रयत्न करा किंवा पुन्हा सुरू करण्यासाठी 'restart' टाइप करा.",
}

var helpMessages = map[string]string{
	"en": "BrainyTots Developmental Assessment Help\n\nThis assessment tracks your child's development across 5 key areas:\n- Gross Motor (movement & coordination)\n- Fine Motor (hand skills)\n- Language & Communication\n- Social-Emotional\n- Cognitive/Problem-Solving\n\nCommands:\n- Type 'restart' to start a new assessment\n- Type 'help' to see this message\n\nThe assessment takes about 5 minutes and gives you personalized insights and recommendations.",
	"hi": "BrainyTots विकास मूल्यांकन सहायता\n\nयह मूल्यांकन आपके बच्चे के विकास को 5 मुख्य क्षेत्रों में ट्रैक करता है:\n- सकल मोटर (गति और समन्वय)\n- सूक्ष्म मोटर (हाथ कौशल)\n- भाषा और संचार\n- सामाजिक-भावनात्मक\n- संज्ञानात्मक/समस्या-समाधान\n\nकमांड:\n- नया मूल्यांकन शुरू करने के लिए 'restart' टाइप करें\n- इस संदेश को देखने के लिए 'help' टाइप करें\n\nमूल्यांकन में लगभग 5 मिनट लगते हैं और आपको व्यक्तिगत अंतर्दृष्टि और सिफारिशें देता है।",
	"mr": "BrainyTots विकासात्मक मूल्यांकन मदत\n\nहे मूल्यांकन तुमच्या मुलाच्या विकासाचा 5 मुख्य क्षेत्रांमध्ये मागोवा घेते:\n- स्थूल मोटर (हालचाल आणि समन्वय)\n- सूक्ष्म मोटर (हाताची कौशल्ये)\n- भाषा आणि संप्रेषण\n- सामाजिक-भावनिक\n- संज्ञानात्मक/समस्या-निराकरण\n\nआदेश:\n- नवीन मूल्यांकन सुरू करण्यासाठी 'restart' टाइप करा\n- हा संदेश पाहण्यासाठी 'help' टाइप करा\n\nमूल्यांकन सुमारे 5 मिनिटे घेते आणि तुम्हाला वैयक्तिक अंतर्दृष्टी आणि शिफारशी देते.",
}

// resumePrompts and resumeButtons exist for the resume-after-gap feature.
// Only the templates are carried today; no code path triggers them yet.
var resumePrompts = map[string]string{
	"en": "Welcome back! You started an assessment for {name} {hours_ago} hours ago.\n\nWould you like to continue where you left off?",
	"hi": "वापस आने के लिए धन्यवाद! आपने {hours_ago} घंटे पहले {name} के लिए एक मूल्यांकन शुरू किया था।\n\nक्या आप वहीं से जारी रखना चाहेंगे जहां आपने छोड़ा था?",
	"mr": "परत आल्याबद्दल धन्यवाद! तुम्ही {hours_ago} तासांपूर्वी {name} साठी मूल्यांकन सुरू केले होते.\n\nतुम्ही जिथे सोडले होते तिथून पुढे चालू ठेवू इच्छिता?",
}

var resumeButtons = map[string][]string{
	"en": {"Yes, continue", "Start new assessment"},
	"hi": {"हां, जारी रखें", "नया मूल्यांकन शुरू करें"},
	"mr": {"होय, पुढे चला", "नवीन मूल्यांकन सुरू करा"},
}
