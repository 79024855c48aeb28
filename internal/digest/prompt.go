package digest

import "fmt"

const digestPrompt = `You are the editor of a daily social media digest about "%[1]s".

Below are posts collected in the last %[2]d hours. Each post shows its content
and its engagement. Author information has been removed on purpose; do not try
to identify anyone.

%[3]s

Write the digest in two parts.

1. A narrative summary in Markdown: the main themes, notable discussions,
   overall sentiment, and anything unusual. Refer to posts by what they say,
   never by who wrote them. Keep it under 600 words.

2. End your reply with a single JSON object and nothing after it, describing a
   cover card for the digest:
   {"title": "short headline", "subtitle": "one sentence", "highlights": ["...", "...", "..."], "sentiment": "positive|neutral|negative|mixed"}
`

// BuildPrompt binds keyword, window and formatted posts into the digest
// prompt.
func BuildPrompt(keyword string, windowHours int, postsText string) string {
	return fmt.Sprintf(digestPrompt, keyword, windowHours, postsText)
}
