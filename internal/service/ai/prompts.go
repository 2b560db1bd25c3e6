package ai

import (
	"fmt"

	"github.com/hayasaka/p-tavern/internal/model/asset"
)

const imagePersonaInstruction = `Look at this image and invent a fictional persona for it.
Write the persona in Markdown with exactly these three sections:

**Name**: a single evocative name
**Personality**: temperament and manner of speech
**Backstory**: a short history explaining who this persona is

Output nothing except that content.`

const documentPersonaInstruction = `Read this document and invent a fictional persona that embodies it.
Write the persona in Markdown with exactly these three sections:

**Name**: a single evocative name
**Personality**: temperament and manner of speech
**Backstory**: a short history explaining who this persona is

Output nothing except that content.`

const regionInstruction = `Find the principal subject of this image and return a bounding box around it.
Coordinates are normalized to the range 0-1000 relative to image width and height
(0 is the left/top edge, 1000 the right/bottom edge). Prefer a region covering at
least 50% of the image area, centered on the subject.
Respond with strict JSON containing exactly the integer fields x, y, width, height.
Do not output anything that is not JSON.`

// personaInstruction selects the fixed synthesis template by media kind.
func personaInstruction(kind asset.Kind) string {
	if kind == asset.KindDocument {
		return documentPersonaInstruction
	}
	return imagePersonaInstruction
}

// SystemInstruction embeds the persona text verbatim into the standing
// instruction for a chat session.
func SystemInstruction(personaText string) string {
	return fmt.Sprintf(`You must strictly adhere to the following persona and always answer in character.
Draw on the persona's implied background and emotional stance in every reply.

%s`, personaText)
}
