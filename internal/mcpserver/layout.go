package mcpserver

// DataLayout describes how Berkana stores notes and diet days on disk so
// that LLM consumers can interpret tool output.
const DataLayout = `# Berkana Data Layout

All data lives under one data directory.

## Notes

` + "```" + `
notes/<folder>/<title>.json
` + "```" + `

- A folder is one directory level; notes are never nested deeper.
- The file name (without ` + "`" + `.json` + "`" + `) is the note title shown to the user.
- Names never contain any of ` + "`" + `\ / : * ? " < > |` + "`" + `. Clashes get a
  ` + "`" + ` (n)` + "`" + ` suffix, e.g. ` + "`" + `Todo (1).json` + "`" + `.
- The file holds one JSON object:

` + "```" + `json
{
  "id": "7d0c7f3e-2c1d-4a7b-9c55-0d7d4c4f8a10",
  "lastOpened": 1736935200000,
  "type": "doc",
  "content": [{"type": "paragraph"}]
}
` + "```" + `

  ` + "`" + `id` + "`" + ` is stable across renames. ` + "`" + `lastOpened` + "`" + ` is Unix milliseconds.
  ` + "`" + `content` + "`" + ` is the rich-text block list, stored as given by the editor.

## Diet days

` + "```" + `
diet/<YYYY-MM-DD>.json
` + "```" + `

Each file is a JSON array. Current entries are objects:

` + "```" + `json
{"id": "…", "name": "Lentils", "grams": 200, "protein": 5, "kcal": 300, "fiber": 2}
` + "```" + `

Nutrients are fixed when the entry is added: the catalog's per-100 g values
scaled by grams. Older files may contain bare strings (food names); these
count as zero nutrients.

## Food catalog

A CSV file with a header row. Columns used: ` + "`" + `name` + "`" + `, ` + "`" + `Calories` + "`" + `,
` + "`" + `Protein (g)` + "`" + `, ` + "`" + `Fiber (g)` + "`" + `, ` + "`" + `Serving Weight 1 (g)` + "`" + `,
` + "`" + `Serving Description 1 (g)` + "`" + `. Values are per 100 g. A row with an empty
protein cell is treated as having no nutrient data.

## Goals

Daily targets default to 2000 kcal, 120 g protein, and 30 g fiber and can
be changed in the app settings.
`
