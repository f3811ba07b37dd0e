package controlled

// scheduledAliases is deliberately over-inclusive: brand names, generics and
// common combination product names.
var scheduledAliases = map[string]Schedule{
	// Schedule II stimulants
	"adderall":           ScheduleII,
	"amphetamine":        ScheduleII,
	"dextroamphetamine":  ScheduleII,
	"dexedrine":          ScheduleII,
	"evekeo":             ScheduleII,
	"mydayis":            ScheduleII,
	"vyvanse":            ScheduleII,
	"lisdexamfetamine":   ScheduleII,
	"ritalin":            ScheduleII,
	"methylphenidate":    ScheduleII,
	"concerta":           ScheduleII,
	"focalin":            ScheduleII,
	"dexmethylphenidate": ScheduleII,
	"desoxyn":            ScheduleII,
	"methamphetamine":    ScheduleII,

	// Schedule II opioids
	"oxycodone":     ScheduleII,
	"oxycontin":     ScheduleII,
	"roxicodone":    ScheduleII,
	"percocet":      ScheduleII,
	"endocet":       ScheduleII,
	"hydrocodone":   ScheduleII,
	"vicodin":       ScheduleII,
	"norco":         ScheduleII,
	"lortab":        ScheduleII,
	"hysingla":      ScheduleII,
	"morphine":      ScheduleII,
	"ms contin":     ScheduleII,
	"kadian":        ScheduleII,
	"fentanyl":      ScheduleII,
	"duragesic":     ScheduleII,
	"hydromorphone": ScheduleII,
	"dilaudid":      ScheduleII,
	"oxymorphone":   ScheduleII,
	"opana":         ScheduleII,
	"methadone":     ScheduleII,
	"dolophine":     ScheduleII,
	"meperidine":    ScheduleII,
	"demerol":       ScheduleII,
	"tapentadol":    ScheduleII,
	"nucynta":       ScheduleII,
	"codeine":       ScheduleII,

	// Schedule III
	"tylenol with codeine": ScheduleIII,
	"buprenorphine":        ScheduleIII,
	"suboxone":             ScheduleIII,
	"subutex":              ScheduleIII,
	"zubsolv":              ScheduleIII,
	"ketamine":             ScheduleIII,
	"testosterone":         ScheduleIII,
	"androgel":             ScheduleIII,
	"butalbital":           ScheduleIII,
	"fiorinal":             ScheduleIII,
	"dronabinol":           ScheduleIII,
	"marinol":              ScheduleIII,

	// Schedule IV
	"xanax":            ScheduleIV,
	"alprazolam":       ScheduleIV,
	"ativan":           ScheduleIV,
	"lorazepam":        ScheduleIV,
	"klonopin":         ScheduleIV,
	"clonazepam":       ScheduleIV,
	"valium":           ScheduleIV,
	"diazepam":         ScheduleIV,
	"restoril":         ScheduleIV,
	"temazepam":        ScheduleIV,
	"halcion":          ScheduleIV,
	"triazolam":        ScheduleIV,
	"librium":          ScheduleIV,
	"chlordiazepoxide": ScheduleIV,
	"ambien":           ScheduleIV,
	"zolpidem":         ScheduleIV,
	"lunesta":          ScheduleIV,
	"eszopiclone":      ScheduleIV,
	"sonata":           ScheduleIV,
	"zaleplon":         ScheduleIV,
	"tramadol":         ScheduleIV,
	"ultram":           ScheduleIV,
	"soma":             ScheduleIV,
	"carisoprodol":     ScheduleIV,
	"phenobarbital":    ScheduleIV,
	"provigil":         ScheduleIV,
	"modafinil":        ScheduleIV,
	"nuvigil":          ScheduleIV,
	"armodafinil":      ScheduleIV,
	"adipex":           ScheduleIV,
	"phentermine":      ScheduleIV,
}
