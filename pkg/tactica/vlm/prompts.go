package vlm

// noThinkSuffix is appended to the system prompt on the stricter retry.
const noThinkSuffix = " Do NOT use <think> tags. Respond immediately with JSON. Return ONLY the JSON object."

const classifySystemPrompt = "You are a soccer coaching diagram classifier. You MUST respond with a " +
	"single valid JSON object and nothing else. No markdown, no explanation, " +
	"no text before or after the JSON. Do NOT use <think> tags."

const classifyPrompt = `Classify this image. Is it a soccer/football coaching diagram?

If YES (tactical diagram with player markers, arrows, pitch lines):
{"is_diagram": true, "description": "Brief tactical description of the drill shown", "movement_patterns": ["A1 passes to A2", "D1 presses A2"]}

If NO (photo, logo, book cover, decorative graphic, text-only):
{"is_diagram": false, "description": "Brief description of what the image shows", "movement_patterns": []}

Output ONLY the JSON object.`

const positionsSystemPrompt = "You are a soccer coaching diagram analyzer. Extract ONLY player positions. " +
	"You MUST respond with a single valid JSON object and nothing else. " +
	"No markdown, no explanation. Do NOT use <think> tags."

const positionsPromptTemplate = `The diagram was described as: %s

Identify every PLAYER marker in the diagram.
For each player give: label (text next to the marker), x, y, color, role.

Coordinates use the Opta system: x from 0 (left touchline) to 100 (right touchline),
y from 0 (own goal line) to 100 (opponent goal line). Never go outside 0-100.

Label to role table:
  GK, GK1        -> "goalkeeper"
  A, A1, A2 ...  -> "attacker"
  D, D1, D2 ...  -> "defender"
  N, N1 ...      -> "neutral"
  anything else  -> "neutral"

Only count player markers (circles or icons with labels). Arrow heads, cones,
sequence numbers and captions are not players.

Example for a 2v1 with a goalkeeper:
{"players": [{"label": "A1", "x": 35, "y": 55, "color": "red", "role": "attacker"}, {"label": "A2", "x": 65, "y": 55, "color": "red", "role": "attacker"}, {"label": "D1", "x": 50, "y": 70, "color": "blue", "role": "defender"}, {"label": "GK", "x": 50, "y": 98, "color": "green", "role": "goalkeeper"}]}

Example with no players:
{"players": []}`

const arrowsSystemPrompt = "You are a soccer coaching diagram analyzer. Extract ONLY movement arrows. " +
	"You MUST respond with a single valid JSON object and nothing else. " +
	"No markdown, no explanation. Do NOT use <think> tags."

const arrowsPrompt = `Extract every movement arrow from this soccer coaching diagram.
Coordinates: x 0-100 (left to right), y 0-100 (own goal line to opponent goal line).

Arrow types: "run" (solid line), "pass" (dashed), "shot" (thick or bold),
"dribble" (wavy), "cross", "through_ball", "movement" (anything else).

For each arrow give the start point, end point, type, the label of the player it
starts from when visible, and its sequence number when one is printed.

{"arrows": [{"start_x": 30, "start_y": 55, "end_x": 45, "end_y": 75, "arrow_type": "run", "from_label": "A1", "sequence_number": 1}]}

Use {"arrows": []} when there are no arrows.`

const equipmentSystemPrompt = "You are a soccer coaching diagram analyzer. Extract ONLY equipment and goals. " +
	"You MUST respond with a single valid JSON object and nothing else. " +
	"No markdown, no explanation. Do NOT use <think> tags."

const equipmentPromptTemplate = `%d player markers were already found in this diagram. Those are PLAYERS, not equipment.
Identify every piece of EQUIPMENT and every GOAL.

Equipment types: "cone" (small triangle), "mannequin" (human-shaped figure), "pole",
"gate" (two cones joined by a line), "hurdle", "mini_goal", "flag".
Goal types: "full_goal" (full-size goal with posts or net).

For each item give: type, x (0-100), y (0-100) and color when visible.
Goals go in "goals", everything else in "equipment".

{"equipment": [{"equipment_type": "mannequin", "x": 40, "y": 60, "color": "blue"}], "goals": [{"x": 50, "y": 100, "goal_type": "full_goal"}]}

Use empty lists when nothing is visible.`

const pitchViewSystemPrompt = "You are a soccer pitch view classifier. " +
	"You MUST respond with a single valid JSON object and nothing else. " +
	"No markdown, no explanation. Do NOT use <think> tags."

const pitchViewPromptTemplate = `The diagram was described as: %s

Classify the portion of the pitch shown:
- "penalty_area": only the area around one goal (18-yard box visible)
- "third": roughly one third of the pitch
- "half_pitch": one half of the pitch (centre line visible)
- "full_pitch": the whole pitch with both goals
- "custom": non-standard or unclear

{"pitch_view": {"view_type": "half_pitch"}}`
