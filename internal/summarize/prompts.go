package summarize

const summarySystemPrompt = "You are a study assistant. You turn lecture notes and textbook excerpts into concise study summaries. You answer with clean HTML only, no markdown, no preamble."

const summaryUserPrompt = `Summarize the following study material for exam preparation.

Rules:
1. Answer with HTML only: use <h2>, <h3>, <p>, <ul>, <li>, <strong>.
2. Keep every definition, formula and date that appears in the source.
3. Group related ideas under headings; prefer short bullet points over prose.
4. Do not invent facts that are not in the source.
5. Do not wrap the output in code fences.

Material:
%s`

const translateSystemPrompt = "You are a professional HTML-aware translator. You translate only the human-readable text nodes of the provided HTML and never touch the markup."

const translateUserPrompt = `Translate the human-readable text of the following HTML into the target language: %s.

Rules:
1. Do not modify, translate, remove or add HTML tags, attributes, classes, ids or URLs.
2. Preserve whitespace, line breaks, entity references and punctuation.
3. Keep the structure and ordering of the document exactly the same.
4. Output only the translated HTML string, no markdown and no commentary.

HTML START
%s
HTML END`

const quizSystemPrompt = "You are a quiz generator for a study platform. You must output your response as a single valid JSON array and nothing else."

const quizUserPrompt = `Generate exactly %d multiple-choice questions of %s difficulty from the material below.

Each element of the JSON array must have exactly these keys:
  - "question": the question text.
  - "options": an object with keys "A", "B", "C", "D" and string values.
  - "answer": the key of the correct option ("A", "B", "C" or "D").
  - "explain": one sentence explaining why the answer is correct.

The output MUST be a single valid JSON array. Do not include any text before
or after it and do not use code fences.

Material:
%s`
