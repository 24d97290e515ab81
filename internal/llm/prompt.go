package llm

import "strings"

// BuildExtractionPrompt composes the fixed instruction for the multimodal
// model. Bills may be printed in English, Hindi, or Marathi; the prompt
// pins down the exact JSON keys and formats we parse downstream.
func BuildExtractionPrompt() string {
	parts := []string{
		"You are a vision-language model tasked with extracting structured information from petrol or diesel bills.",
		"These bills may be in English, Hindi, or Marathi.",
		"Your goal is to extract and return the following details in JSON format:",
		"",
		`- "Petrol Pump Name": the topmost prominent text, usually the petrol pump or brand name (e.g., "Tungar Petroleum").`,
		`- "Date": the date of the transaction. It may appear near the bill number or be labeled "Date:", "दिनांक", or "दि.". Return the date strictly in DD/MM/YYYY format.`,
		`- "Product": the type of fuel sold. Extract only the word "Petrol" or "Diesel". Do not include numbers, prices, or quantities.`,
		`- "Volume(L)": the value next to the label "VOLUME" or its equivalent.`,
		`- "Rate per Litre": the per-litre rate, usually in the third column of a price table. If shown split across lines such as "91\n74", join it as "91.74".`,
		`- "Total Amount (Rs)": the final amount payable, generally near the bottom-right under "AMOUNT" or "Rs.". When not explicitly printed, estimate from the tabular layout: the last value in the third column of the price table usually corresponds to the final amount.`,
		"",
		"Additional instructions:",
		"- Translate all extracted information into English.",
		"- If a particular field is missing or unclear in the image, leave its value as an empty string.",
		"- Return ONLY the JSON object, no commentary, strictly in this shape:",
		"",
		"```json",
		"{",
		`  "Petrol Pump Name": "",`,
		`  "Date": "",`,
		`  "Product": "",`,
		`  "Volume(L)": "",`,
		`  "Rate per Litre": "",`,
		`  "Total Amount (Rs)": ""`,
		"}",
		"```",
	}
	return strings.Join(parts, "\n")
}

// BuildUserNote packages the filename hint that accompanies the image part.
func BuildUserNote(filename string) string {
	filename = strings.TrimSpace(filename)
	if filename == "" {
		return ""
	}
	return "Filename: " + filename
}
