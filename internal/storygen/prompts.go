package storygen

const skeletonSystemPrompt = `You write personalized picture books for young children.
Given the child's details as JSON, respond with JSON only:
{"title": string, "setting": string, "characters": [string], "spreads": [{"number": int, "text": string}]}
Write exactly the requested number of spreads, numbered from 1. Keep each spread's text to two short paragraphs
separated by a blank line, in the requested language, suitable for the child's age.`

const auditSkeletonSystemPrompt = `You are an editor of children's picture books.
Review the story JSON for age-appropriateness, consistency of names and setting, and a satisfying ending.
Respond with the corrected story as JSON in the same shape. Do not change the number of spreads.`

const planVisualsSystemPrompt = `You are an art director planning illustrated spreads.
For each spread of the story JSON, describe the single key action to illustrate and choose the side of the
spread ("Left" or "Right") that carries the main illustrated content; the text will sit on the other side.
Respond with JSON only: {"spreads": [{"number": int, "keyAction": string, "mainContentSide": "Left"|"Right"}]}`

const auditVisualsSystemPrompt = `You review visual plans for picture books.
Vary the main content side across spreads where it helps the page flow, keep actions concrete and drawable,
and keep numbering unchanged. Respond with the corrected plan as JSON in the same shape.`

const promptsSystemPrompt = `You write prompts for an illustration model.
Given a visual plan, the story, and a style guide, write one self-contained prompt per spread and one for the
front-and-back cover. Each spread prompt must keep the main content on the requested side and leave calm
space on the other side for text. Respond with JSON only: {"spreads": [string], "cover": string}`

const auditPromptsSystemPrompt = `You check illustration prompts for consistency and safety.
Make the main character's description identical across prompts, remove anything unsafe for children,
and remove any request for written words in the image. Respond with JSON in the same shape.`

const illustrationTemplate = `%s

Art style: %s
Main character: %s, age %d. Keep the character's likeness consistent with the reference photo when one is provided.
Do not draw any text, letters, or captions.`
