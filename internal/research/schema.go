package research

// LeadSchema is the structured-output schema sent with every research
// interaction and with the fallback extraction call. The agent is asked to
// return a single JSON object with a leads array in this shape.
const LeadSchema = `{
  "type": "object",
  "properties": {
    "leads": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "name": {"type": "string"},
          "company": {"type": "string"},
          "lead_type": {"type": "string"},
          "email": {"type": "string"},
          "phone": {"type": "string"},
          "instagram": {"type": "string"},
          "telegram": {"type": "string"},
          "website": {"type": "string"},
          "notes": {"type": "string"},
          "temperature": {"type": "string", "enum": ["cold", "warm", "hot"]},
          "tags": {"type": "array", "items": {"type": "string"}}
        },
        "required": ["name"]
      }
    }
  },
  "required": ["leads"]
}`
