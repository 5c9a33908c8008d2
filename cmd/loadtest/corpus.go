package main

// corpus is a small mix of brand-only, competitor-only, comparative and
// unrelated posts so every code path of the scorer gets traffic.
var corpus = []samplePost{
	{Title: "Switched payroll providers", Body: "Switched from ADP to Gusto, ADP's fees kept creeping up but Gusto has been great, no issues at all."},
	{Title: "", Body: "Gusto support took three days to answer a simple tax question. Really frustrating."},
	{Title: "Gusto vs Rippling?", Body: "Rippling looks powerful but expensive. Gusto is simpler and the onboarding was easy."},
	{Title: "Quarterly filing", Body: "Quarterly payroll filing took all afternoon again."},
	{Title: "QuickBooks payroll", Body: "QuickBooks payroll integrates with our accounting but the interface is clunky."},
	{Title: "Benefits admin", Body: "Gusto's benefits administration saved us hours every month. Love the 401k integration."},
	{Title: "", Body: "Paychex charged us a surprise fee and their rep was unhelpful. Looking at Gusto instead."},
	{Title: "International hires", Body: "Deel handles contractors abroad well; Gusto only covers US employees for us."},
	{Title: "Justworks PEO", Body: "Justworks is fine but pricing per employee adds up quickly for a small team."},
	{Title: "Mobile app", Body: "The Gusto mobile app crashes every time I try to view pay stubs. Please fix."},
	{Title: "Year end", Body: "W-2s went out on time with Gusto, zero hassle this year. Highly recommend."},
	{Title: "HR stack", Body: "We run Workday at the parent company and BambooHR at the subsidiary. No complaints."},
}
