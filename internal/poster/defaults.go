package poster

import (
	"fmt"

	"postergen/internal/theme"
)

// DefaultEntryCount is the number of placeholder sessions in a new poster.
const DefaultEntryCount = 8

// DefaultBackgroundURL is the placeholder background of a new poster.
const DefaultBackgroundURL = "https://picsum.photos/seed/lagrange/1200/1600"

// DefaultStyle returns the built-in style settings.
func DefaultStyle() StyleSettings {
	return StyleSettings{
		BackgroundBlur:     0,
		BackgroundDarkness: 0.2,
		ContentOpacity:     0.5,
	}
}

// DefaultLayout returns the built-in layout settings.
func DefaultLayout() LayoutSettings {
	return LayoutSettings{
		HeaderScale:        1,
		ProgramScale:       1,
		FooterScale:        1,
		TitleSize:          48,
		SubtitleSize:       14,
		MetaSize:           14,
		DescriptionSize:    14,
		ProgramTextPercent: 100,
		ContactSize:        12,
		LogoHeight:         48,
		QRSize:             64,
		ContentMargin:      8,
		SectionGap:         4,
	}
}

// DefaultEntries returns the placeholder programme: sessions default-0 ..
// default-7 starting at 9:00, one per hour.
func DefaultEntries() []ProgramEntry {
	items := make([]ProgramEntry, 0, DefaultEntryCount)
	for i := 0; i < DefaultEntryCount; i++ {
		items = append(items, ProgramEntry{
			ID:          fmt.Sprintf("default-%d", i),
			Time:        fmt.Sprintf("%d:00", 9+i),
			Title:       fmt.Sprintf("Session Scientifique %d: Avancées Récentes", i+1),
			Speaker:     fmt.Sprintf("Dr. Chercheur %c", rune('A'+i)),
			Description: "Présentation des résultats préliminaires sur l'observation des nébuleuses.",
		})
	}
	return items
}

// Default returns a fresh copy of the built-in poster. Callers may mutate the
// result freely.
func Default() *Poster {
	style := DefaultStyle()
	layout := DefaultLayout()
	return &Poster{
		Title:            "JOURNÉE SCIENTIFIQUE",
		Subtitle:         "Laboratoire Lagrange",
		Date:             "14 Octobre 2025",
		Location:         "Grand Amphithéâtre, Nice",
		EventDescription: "Une journée dédiée à la présentation des travaux de recherche des doctorants et chercheurs du laboratoire, favorisant les échanges interdisciplinaires en astrophysique.",
		BackgroundURL:    DefaultBackgroundURL,
		Items:            DefaultEntries(),
		ProgramTitle:     "PROGRAMME",
		Logos:            []string{},
		Theme:            theme.Modern,
		Style:            &style,
		Layout:           &layout,
		ContactTitle:     "Contact & Organisation",
		ContactDetails:   "Laboratoire Lagrange - Observatoire de la Côte d'Azur\nBoulevard de l'Observatoire, CS 34229, 06304 Nice Cedex 4",
		QRCodeURL:        "",
	}
}
