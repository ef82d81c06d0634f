package notify

import (
	"fmt"

	"github.com/osteele/liquid"
)

// Kind identifies a transactional email.
type Kind string

const (
	KindOrderCompleted     Kind = "order_completed"
	KindCodeDelivered      Kind = "code_delivered"
	KindOrderReceived      Kind = "order_received"
	KindSubmissionReviewed Kind = "submission_reviewed"
	KindSessionRegistered  Kind = "session_registered"
)

type emailTemplate struct {
	Subject string
	HTML    string
	Text    string
}

const signature = "AWS User Group Madurai"

var defaultTemplates = map[Kind]emailTemplate{
	KindOrderCompleted: {
		Subject: "Your order for {{ item_name }} is complete",
		HTML: `<p>Hi {{ user_name | default: "there" }},</p>
<p>Your order <strong>{{ order_id }}</strong> for <strong>{{ item_name }}</strong> has been completed.</p>
{% if address %}<p>It is on its way to {{ address.city }}, {{ address.country }}.</p>{% endif %}
<p>{{ signature }}</p>`,
		Text: `Hi {{ user_name | default: "there" }},
Your order {{ order_id }} for {{ item_name }} has been completed.
{{ signature }}`,
	},
	KindCodeDelivered: {
		Subject: "Your code for {{ item_name }}",
		HTML: `<p>Hi {{ user_name | default: "there" }},</p>
<p>Thanks for redeeming <strong>{{ item_name }}</strong> for {{ points }} points.</p>
<p>Your code: <code>{{ code }}</code></p>
<p>{{ signature }}</p>`,
		Text: `Hi {{ user_name | default: "there" }},
Thanks for redeeming {{ item_name }} for {{ points }} points.
Your code: {{ code }}
{{ signature }}`,
	},
	KindOrderReceived: {
		Subject: "We received your order for {{ item_name }}",
		HTML: `<p>Hi {{ user_name | default: "there" }},</p>
<p>We received your order <strong>{{ order_id }}</strong> for <strong>{{ item_name }}</strong> ({{ points }} points). We will let you know when it ships.</p>
<p>{{ signature }}</p>`,
		Text: `Hi {{ user_name | default: "there" }},
We received your order {{ order_id }} for {{ item_name }} ({{ points }} points). We will let you know when it ships.
{{ signature }}`,
	},
	KindSubmissionReviewed: {
		Subject: "Your {{ sprint_title }} submission was {{ status }}",
		HTML: `<p>Hi {{ user_name | default: "there" }},</p>
<p>Your submission for <strong>{{ sprint_title }}</strong> was {{ status }}.{% if points > 0 %} You earned {{ points }} points.{% endif %}</p>
{% if feedback != "" %}<p>Feedback: {{ feedback }}</p>{% endif %}
<p>{{ signature }}</p>`,
		Text: `Hi {{ user_name | default: "there" }},
Your submission for {{ sprint_title }} was {{ status }}.{% if points > 0 %} You earned {{ points }} points.{% endif %}
{% if feedback != "" %}Feedback: {{ feedback }}{% endif %}
{{ signature }}`,
	},
	KindSessionRegistered: {
		Subject: "You're registered: {{ session_title }}",
		HTML: `<p>Hi {{ user_name | default: "there" }},</p>
<p>You are registered for <strong>{{ session_title }}</strong> ({{ sprint_title }}) on {{ date }}{% if time != "" %} at {{ time }}{% endif %}.</p>
{% if meeting_link != "" %}<p><a href="{{ meeting_link }}">Join link</a></p>{% endif %}
<p>{{ signature }}</p>`,
		Text: `Hi {{ user_name | default: "there" }},
You are registered for {{ session_title }} ({{ sprint_title }}) on {{ date }}{% if time != "" %} at {{ time }}{% endif %}.
{% if meeting_link != "" %}Join: {{ meeting_link }}{% endif %}
{{ signature }}`,
	},
}

type compiledTemplate struct {
	subject *liquid.Template
	html    *liquid.Template
	text    *liquid.Template
}

// Templates renders the email kinds with Liquid.
type Templates struct {
	compiled map[Kind]compiledTemplate
}

// NewTemplates parses the built-in templates.
func NewTemplates() (*Templates, error) {
	engine := liquid.NewEngine()
	t := &Templates{compiled: make(map[Kind]compiledTemplate, len(defaultTemplates))}

	for kind, tpl := range defaultTemplates {
		subject, err := engine.ParseString(tpl.Subject)
		if err != nil {
			return nil, fmt.Errorf("parse %s subject: %w", kind, err)
		}
		html, err := engine.ParseString(tpl.HTML)
		if err != nil {
			return nil, fmt.Errorf("parse %s html: %w", kind, err)
		}
		text, err := engine.ParseString(tpl.Text)
		if err != nil {
			return nil, fmt.Errorf("parse %s text: %w", kind, err)
		}
		t.compiled[kind] = compiledTemplate{subject: subject, html: html, text: text}
	}
	return t, nil
}

// Render produces the subject and bodies for kind.
func (t *Templates) Render(kind Kind, data map[string]any) (Email, error) {
	tpl, ok := t.compiled[kind]
	if !ok {
		return Email{}, fmt.Errorf("unknown email kind %q", kind)
	}

	bindings := make(map[string]any, len(data)+1)
	for k, v := range data {
		bindings[k] = v
	}
	bindings["signature"] = signature

	subject, err := tpl.subject.RenderString(bindings)
	if err != nil {
		return Email{}, fmt.Errorf("render %s subject: %w", kind, err)
	}
	html, err := tpl.html.RenderString(bindings)
	if err != nil {
		return Email{}, fmt.Errorf("render %s html: %w", kind, err)
	}
	text, err := tpl.text.RenderString(bindings)
	if err != nil {
		return Email{}, fmt.Errorf("render %s text: %w", kind, err)
	}
	return Email{Subject: subject, HTML: html, Text: text}, nil
}
